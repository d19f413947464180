package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/campuscore/backend/internal/logger"
)

const (
	defaultListenAddr         = "localhost:8080"
	defaultLoggingLevel       = logger.LevelInfo
	defaultEnvironment        = "prod"
	defaultTokenIssuer        = "campuscore"
	defaultTokenAudience      = "campuscore-clients"
	defaultAccessTokenMinutes = 15
	defaultRefreshTokenDays   = 7
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment controls the log output format (dev is text, prod is json)
	Environment string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Symmetric key used to sign access tokens
	JWTSecret string

	// iss and aud claims stamped into every access token
	JWTIssuer   string
	JWTAudience string

	// Token lifetimes
	AccessTokenMinutes int
	RefreshTokenDays   int
}

func NewConfig() *Config {
	return &Config{
		LogLevel:           defaultLoggingLevel,
		Environment:        defaultEnvironment,
		ListenAddr:         defaultListenAddr,
		JWTIssuer:          defaultTokenIssuer,
		JWTAudience:        defaultTokenAudience,
		AccessTokenMinutes: defaultAccessTokenMinutes,
		RefreshTokenDays:   defaultRefreshTokenDays,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	var errs []error

	// Set option to value if it not empty
	setString := func(o *string) func(key, value string) {
		return func(_, value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(key, value string) {
		return func(key, value string) {
			if value == "" {
				return
			}
			parsed, err := strconv.Atoi(value)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s must be an integer, got %q", key, value))
				return
			}
			*o = parsed
		}
	}

	envMap := map[string]func(string, string){
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"JWT_SECRET":             setString(&c.JWTSecret),
		"JWT_ISSUER":             setString(&c.JWTIssuer),
		"JWT_AUDIENCE":           setString(&c.JWTAudience),
		"ACCESS_TOKEN_LIFETIME":  setInt(&c.AccessTokenMinutes),
		"REFRESH_TOKEN_LIFETIME": setInt(&c.RefreshTokenDays),
	}

	for key, parseFn := range envMap {
		parseFn(key, getenv(key))
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("campusd", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.JWTSecret, "secret-key", "s", c.JWTSecret, "Secret key used to sign access tokens")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.JWTIssuer, "token-issuer", c.JWTIssuer, "Issuer claim for access tokens")
	fs.StringVar(&c.JWTAudience, "token-audience", c.JWTAudience, "Audience claim for access tokens")
	fs.IntVar(&c.AccessTokenMinutes, "access-lifetime", c.AccessTokenMinutes, "Access token lifetime in minutes")
	fs.IntVar(&c.RefreshTokenDays, "refresh-lifetime", c.RefreshTokenDays, "Refresh token lifetime in days")

	return fs.Parse(args)
}

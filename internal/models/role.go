package models

// Role is a named permission bucket. The set of roles is fixed and seeded
// by migration; only the description may change afterwards.
type Role struct {
	ID          int64
	Name        string
	Description string
}

// ValidRoleName reports whether name is one of the seeded system roles.
func ValidRoleName(name string) bool {
	switch name {
	case RoleAdmin, RoleDepartmentHead, RoleFaculty, RoleTeachingAssistant,
		RoleAdvisor, RoleAdmissionsOfficer, RoleStudent, RoleStudentLeader,
		RoleItSupport, RoleLibrarian:
		return true
	}
	return false
}

// Seeded system roles. IDs match the rows inserted by the initial migration.
const (
	RoleAdmin             = "Admin"
	RoleDepartmentHead    = "DepartmentHead"
	RoleFaculty           = "Faculty"
	RoleTeachingAssistant = "TeachingAssistant"
	RoleAdvisor           = "Advisor"
	RoleAdmissionsOfficer = "AdmissionsOfficer"
	RoleStudent           = "Student"
	RoleStudentLeader     = "StudentLeader"
	RoleItSupport         = "ItSupport"
	RoleLibrarian         = "Librarian"
)

package domain

import "strings"

// Role orders actors from least to most privileged.
type Role int

const (
	RoleAnonymous Role = iota
	RoleGuest
	RoleStudent
	RoleTeacher
	RoleMaster
)

var roleNames = map[Role]string{
	RoleAnonymous: "anonymous",
	RoleGuest:     "student_guest",
	RoleStudent:   "student",
	RoleTeacher:   "teacher",
	RoleMaster:    "master",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the backend name of the role.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseRole maps a backend user type onto a Role. Only roles the backend can
// authenticate are accepted.
func ParseRole(raw string) (Role, bool) {
	switch strings.TrimSpace(raw) {
	case "student":
		return RoleStudent, true
	case "teacher":
		return RoleTeacher, true
	case "master":
		return RoleMaster, true
	}
	return RoleAnonymous, false
}

// Capability is a UI gate defined by a minimum role.
type Capability string

const (
	CapViewClass      Capability = "view_class"
	CapTakeQuiz       Capability = "take_quiz"
	CapViewOwnHistory Capability = "view_own_history"
	CapManageClasses  Capability = "manage_classes"
	CapViewAllHistory Capability = "view_all_history"
)

var capabilityMinRole = map[Capability]Role{
	CapViewClass:      RoleGuest,
	CapTakeQuiz:       RoleStudent,
	CapViewOwnHistory: RoleStudent,
	CapManageClasses:  RoleTeacher,
	CapViewAllHistory: RoleTeacher,
}

// Capabilities lists every defined capability.
func Capabilities() []Capability {
	return []Capability{CapViewClass, CapTakeQuiz, CapViewOwnHistory, CapManageClasses, CapViewAllHistory}
}

// MinRole returns the least role granted c. Unknown capabilities require a
// role above every defined one.
func (c Capability) MinRole() Role {
	if r, ok := capabilityMinRole[c]; ok {
		return r
	}
	return RoleMaster + 1
}

// Can reports whether the actor holds capability c. Anonymous actors hold none.
func (a Actor) Can(c Capability) bool {
	if a.Role == RoleAnonymous {
		return false
	}
	return a.Role >= c.MinRole()
}

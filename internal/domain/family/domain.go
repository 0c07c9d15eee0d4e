// Package family holds the family and member model shared by the API, the
// notification fan-out and the scheduler tasks.
package family

// Role of a family member.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool { return r == RoleParent || r == RoleChild }

// Family is a tenant: every other entity hangs off a family via its members.
type Family struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// User is a family member. Email is empty until a validated address exists.
type User struct {
	UID       string `json:"uid"`
	Role      Role   `json:"role"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	FamilyUID string `json:"family_uid"`
}

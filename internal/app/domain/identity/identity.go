// Package identity describes an authenticated principal.
package identity

// Role selects which account table a principal belongs to.
type Role string

const (
	RoleStudent Role = "student"
	RoleShop    Role = "shop"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleStudent, RoleShop, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

// Identity is what a successful login yields. SubjectID is the student id,
// shop id or admin id rendered as a string.
type Identity struct {
	Role        Role   `json:"role"`
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name"`
	OwnerName   string `json:"owner_name,omitempty"`
}

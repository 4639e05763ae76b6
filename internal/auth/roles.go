package auth

// CoarseRole is the organization-wide permission tier. It is decoded exactly
// once, at the identity boundary; unknown values are rejected rather than
// silently defaulted.
type CoarseRole int

const (
	RoleViewer CoarseRole = iota
	RoleEmployee
	RoleManager
	RoleAdmin
)

var roleNames = map[CoarseRole]string{
	RoleViewer:   "viewer",
	RoleEmployee: "employee",
	RoleManager:  "manager",
	RoleAdmin:    "admin",
}

var rolesByName = map[string]CoarseRole{
	"viewer":   RoleViewer,
	"employee": RoleEmployee,
	"manager":  RoleManager,
	"admin":    RoleAdmin,
}

func (r CoarseRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// AtLeast reports whether r ranks at or above min in the total order
// viewer < employee < manager < admin.
func (r CoarseRole) AtLeast(min CoarseRole) bool {
	return r >= min
}

func (r CoarseRole) IsManager() bool {
	return r.AtLeast(RoleManager)
}

func (r CoarseRole) IsAdmin() bool {
	return r == RoleAdmin
}

// ParseCoarseRole decodes a stored role string into the closed enum.
func ParseCoarseRole(s string) (CoarseRole, error) {
	if role, ok := rolesByName[s]; ok {
		return role, nil
	}
	return RoleViewer, ErrUnknownRole
}

func (r CoarseRole) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

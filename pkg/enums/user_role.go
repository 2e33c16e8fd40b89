package enums

// UserRole gates access to storefront routes.
type UserRole string

const (
	UserRoleUser    UserRole = "user"
	UserRoleManager UserRole = "manager"
	UserRoleAdmin   UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleUser,
	UserRoleManager,
	UserRoleAdmin,
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role may manage orders and coupons.
func (r UserRole) IsStaff() bool {
	return r == UserRoleManager || r == UserRoleAdmin
}

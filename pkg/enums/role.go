package enums

// UserRole is the account type carried in access tokens.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleVendor   UserRole = "vendor"
	RoleAdmin    UserRole = "admin"
)

var userRoles = []UserRole{RoleCustomer, RoleVendor, RoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return member(userRoles, r) }

// SelfRegisterable reports whether the role can be chosen at sign-up;
// admins are provisioned out of band.
func (r UserRole) SelfRegisterable() bool {
	return r == RoleCustomer || r == RoleVendor
}

func ParseUserRole(value string) (UserRole, error) {
	return lookup(userRoles, value, "user role")
}

package models

// Principal is the authenticated identity a request acts as. The zero value is
// an anonymous caller.
type Principal struct {
	UserID uint
	Role   Role
}

// Anonymous is the principal used for requests without a valid bearer token.
var Anonymous = Principal{}

func (p Principal) Authenticated() bool {
	return p.UserID != 0
}

func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}

// PrincipalFor builds a principal from a loaded account.
func PrincipalFor(u *User) Principal {
	if u == nil {
		return Anonymous
	}
	role := u.Role
	if role == "" {
		role = RoleUser
	}
	return Principal{UserID: u.ID, Role: role}
}

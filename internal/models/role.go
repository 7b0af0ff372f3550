package models

// Role is an ordered privilege level. Comparison goes through Meets so route
// guards never compare raw strings.
type Role string

const (
	RoleCorretor Role = "corretor"
	RoleGerente  Role = "gerente"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleCorretor: 1,
	RoleGerente:  2,
	RoleAdmin:    3,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Meets reports whether r grants at least the privileges of min.
// Unknown roles never meet anything.
func (r Role) Meets(min Role) bool {
	return roleRank[r] != 0 && roleRank[r] >= roleRank[min]
}

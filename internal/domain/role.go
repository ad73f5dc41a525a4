package domain

type Role string

const (
	RoleFan       Role = "fan"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Elevated roles may act on tickets they do not own and manage events.
func (r Role) Elevated() bool {
	return r == RoleOrganizer || r == RoleAdmin
}

package enums

import "slices"

// ActorRole is the kind of authenticated principal carried in access tokens.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleSeller   ActorRole = "seller"
	ActorRoleAdmin    ActorRole = "admin"
)

var actorRoles = []ActorRole{ActorRoleCustomer, ActorRoleSeller, ActorRoleAdmin}

func (r ActorRole) String() string { return string(r) }

func (r ActorRole) IsValid() bool { return slices.Contains(actorRoles, r) }

func ParseActorRole(value string) (ActorRole, error) {
	return parse("actor role", value, actorRoles)
}

package donations

import "github.com/ariefcatur/go-donation-fulfillment/internal/actors"

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in-progress"
	StatusDelivered  Status = "delivered"
)

// Strictly forward, one step at a time. delivered is terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusAccepted: true},
	StatusAccepted:   {StatusInProgress: true},
	StatusInProgress: {StatusDelivered: true},
	StatusDelivered:  {},
}

// Roles allowed to move a donation into the keyed status.
var allowedRoles = map[Status][]actors.Role{
	StatusAccepted:   {actors.RoleSupplier},
	StatusInProgress: {actors.RoleSupplier, actors.RoleTransporter},
	StatusDelivered:  {actors.RoleTransporter, actors.RoleInstitute},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusDelivered
}

// RoleMayEnter reports whether role is allowed to move a donation into to.
func RoleMayEnter(role actors.Role, to Status) bool {
	for _, r := range allowedRoles[to] {
		if r == role {
			return true
		}
	}
	return false
}

// Rank orders statuses along the lifecycle, 0 for pending. Unknown is -1.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 1
	case StatusInProgress:
		return 2
	case StatusDelivered:
		return 3
	}
	return -1
}

package actors

import (
	"context"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
)

type Role string

const (
	RoleDonor       Role = "donor"
	RoleSupplier    Role = "supplier"
	RoleTransporter Role = "transporter"
	RoleInstitute   Role = "institute"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleSupplier, RoleTransporter, RoleInstitute:
		return true
	}
	return false
}

// Actor is what the auth collaborator knows about an authenticated id. The
// core reads Products for suppliers; everything else in Profile is opaque.
type Actor struct {
	ID          string             `json:"id"`
	Role        Role               `json:"role"`
	DisplayName string             `json:"display_name"`
	Products    []catalog.ItemType `json:"products,omitempty"`
	Rating      float64            `json:"rating,omitempty"`
	Profile     map[string]string  `json:"profile,omitempty"`
}

// Directory resolves an actor id to its role and profile. Implementations
// must not cache results indefinitely.
type Directory interface {
	Resolve(ctx context.Context, id string) (Actor, error)
}

// StaticDirectory is an in-process Directory, used for local runs and tests.
type StaticDirectory struct {
	mu     sync.RWMutex
	actors map[string]Actor
}

func NewStaticDirectory(actors ...Actor) *StaticDirectory {
	d := &StaticDirectory{actors: make(map[string]Actor, len(actors))}
	for _, a := range actors {
		d.actors[a.ID] = a
	}
	return d
}

func (d *StaticDirectory) Resolve(_ context.Context, id string) (Actor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.actors[id]
	if !ok {
		return Actor{}, fmt.Errorf("%w: actor %q", sentinel.ErrNotFound, id)
	}
	return a, nil
}

// Put adds or replaces an actor; profiles change out of band.
func (d *StaticDirectory) Put(a Actor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actors[a.ID] = a
}

// SupplierActor projects a catalog supplier into the directory shape.
func SupplierActor(s catalog.Supplier) Actor {
	return Actor{
		ID:          s.ID,
		Role:        RoleSupplier,
		DisplayName: s.Name,
		Products:    s.Products,
		Rating:      s.Rating,
		Profile:     map[string]string{"store_address": s.Address},
	}
}

// Seed builds the reference directory: the given suppliers plus the demo
// donor, transporters and institutes.
func Seed(suppliers *catalog.SupplierRegistry) *StaticDirectory {
	d := NewStaticDirectory(
		Actor{ID: "d1", Role: RoleDonor, DisplayName: "Demo Donor"},
		Actor{ID: "t1", Role: RoleTransporter, DisplayName: "Fast Delivery", Rating: 4.7},
		Actor{ID: "t2", Role: RoleTransporter, DisplayName: "City Express", Rating: 4.5},
		Actor{ID: "t3", Role: RoleTransporter, DisplayName: "Reliable Transport", Rating: 4.8},
		Actor{ID: "i1", Role: RoleInstitute, DisplayName: "Hope Children's Home", Rating: 4.8},
		Actor{ID: "i2", Role: RoleInstitute, DisplayName: "Sunshine Orphanage", Rating: 4.6},
		Actor{ID: "i3", Role: RoleInstitute, DisplayName: "Little Angels Foundation", Rating: 4.9},
	)
	for _, s := range suppliers.All() {
		d.Put(SupplierActor(s))
	}
	return d
}

// Package presence tracks which customers, sellers and the admin are
// connected and routes realtime events between them.
package presence

import (
	"sort"
	"sync"
)

// Profile is the free-form user info a client announces when it registers.
type Profile map[string]any

// Actor is one registered connection.
type Actor struct {
	EntityID     string  `json:"entityId"`
	ConnectionID string  `json:"connectionId"`
	Profile      Profile `json:"userInfo,omitempty"`
}

// Directory is the in-memory registry of live actors. Each entity holds at
// most one connection; the latest registration wins.
type Directory struct {
	mu        sync.RWMutex
	customers map[string]Actor
	sellers   map[string]Actor
	admin     *Actor
	closed    bool
}

func NewDirectory() *Directory {
	return &Directory{
		customers: make(map[string]Actor),
		sellers:   make(map[string]Actor),
	}
}

func (d *Directory) RegisterCustomer(entityID, connID string, profile Profile) {
	d.register(d.customers, entityID, connID, profile)
}

func (d *Directory) RegisterSeller(entityID, connID string, profile Profile) {
	d.register(d.sellers, entityID, connID, profile)
}

func (d *Directory) register(into map[string]Actor, entityID, connID string, profile Profile) {
	if entityID == "" || connID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	into[entityID] = Actor{EntityID: entityID, ConnectionID: connID, Profile: profile.clone()}
}

// RegisterAdmin fills the single admin slot. Credentials are never kept.
func (d *Directory) RegisterAdmin(entityID, connID string, profile Profile) {
	if connID == "" {
		return
	}
	stripped := profile.clone()
	delete(stripped, "email")
	delete(stripped, "password")

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.admin = &Actor{EntityID: entityID, ConnectionID: connID, Profile: stripped}
}

// Unregister removes every registration held by connID and reports whether
// anything was removed.
func (d *Directory) Unregister(connID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := false
	for id, actor := range d.customers {
		if actor.ConnectionID == connID {
			delete(d.customers, id)
			removed = true
		}
	}
	for id, actor := range d.sellers {
		if actor.ConnectionID == connID {
			delete(d.sellers, id)
			removed = true
		}
	}
	if d.admin != nil && d.admin.ConnectionID == connID {
		d.admin = nil
		removed = true
	}
	return removed
}

func (d *Directory) Customer(entityID string) (Actor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	actor, ok := d.customers[entityID]
	return actor, ok
}

func (d *Directory) Seller(entityID string) (Actor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	actor, ok := d.sellers[entityID]
	return actor, ok
}

func (d *Directory) Admin() (Actor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.admin == nil {
		return Actor{}, false
	}
	return *d.admin, true
}

// ActiveSellers returns a snapshot ordered by entity id.
func (d *Directory) ActiveSellers() []Actor {
	d.mu.RLock()
	out := make([]Actor, 0, len(d.sellers))
	for _, actor := range d.sellers {
		out = append(out, actor)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Close drops all registrations. Later registrations are ignored.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.customers = make(map[string]Actor)
	d.sellers = make(map[string]Actor)
	d.admin = nil
}

func (p Profile) clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

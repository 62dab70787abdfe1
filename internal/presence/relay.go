package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/metrics"
)

// Inbound client events.
const (
	EventAddUser   = "addUser"
	EventAddSeller = "addSeller"
	EventAddAdmin  = "addAdmin"
)

// Outbound server events.
const (
	EventActiveSellers         = "activeSellers"
	EventSellerMessage         = "sellerMessage"
	EventCustomerMessage       = "customerMessage"
	EventReceiverAdminMessage  = "receiverAdminMessage"
	EventReceiverSellerMessage = "receiverSellerMessage"
)

// Event is the frame exchanged with websocket clients.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent encodes payload as the frame data.
func NewEvent(name string, payload any) (Event, error) {
	if payload == nil {
		return Event{Name: name}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, Data: raw}, nil
}

// Sender delivers events to connections.
type Sender interface {
	Send(connID string, event Event) error
	Broadcast(event Event)
}

// Principal is the authenticated identity behind a connection.
type Principal struct {
	EntityID string
	Role     enums.ActorRole
}

// Relay registers actors and routes chat events between them. Delivery is
// at most once: events for offline recipients are dropped.
type Relay struct {
	dir     *Directory
	sender  Sender
	logg    *logger.Logger
	metrics *metrics.PresenceMetrics
}

func NewRelay(dir *Directory, sender Sender, logg *logger.Logger, m *metrics.PresenceMetrics) (*Relay, error) {
	if dir == nil {
		return nil, fmt.Errorf("presence directory required")
	}
	if sender == nil {
		return nil, fmt.Errorf("presence sender required")
	}
	return &Relay{dir: dir, sender: sender, logg: logg, metrics: m}, nil
}

func (r *Relay) AddUser(ctx context.Context, connID, customerID string, profile Profile) {
	r.dir.RegisterCustomer(customerID, connID, profile)
	r.broadcastActiveSellers(ctx)
}

func (r *Relay) AddSeller(ctx context.Context, connID, sellerID string, profile Profile) {
	r.dir.RegisterSeller(sellerID, connID, profile)
	r.broadcastActiveSellers(ctx)
}

func (r *Relay) AddAdmin(ctx context.Context, connID, adminID string, profile Profile) {
	r.dir.RegisterAdmin(adminID, connID, profile)
	r.broadcastActiveSellers(ctx)
}

func (r *Relay) Disconnect(ctx context.Context, connID string) {
	r.dir.Unregister(connID)
	r.broadcastActiveSellers(ctx)
}

func (r *Relay) SendSellerMessage(ctx context.Context, customerID string, payload any) bool {
	actor, ok := r.dir.Customer(customerID)
	return r.Route(ctx, actor, ok, EventSellerMessage, payload)
}

func (r *Relay) SendCustomerMessage(ctx context.Context, sellerID string, payload any) bool {
	actor, ok := r.dir.Seller(sellerID)
	return r.Route(ctx, actor, ok, EventCustomerMessage, payload)
}

func (r *Relay) SendMessageAdminToSeller(ctx context.Context, sellerID string, payload any) bool {
	actor, ok := r.dir.Seller(sellerID)
	return r.Route(ctx, actor, ok, EventReceiverAdminMessage, payload)
}

func (r *Relay) SendMessageSellerToAdmin(ctx context.Context, payload any) bool {
	actor, ok := r.dir.Admin()
	return r.Route(ctx, actor, ok, EventReceiverSellerMessage, payload)
}

// Route delivers one event to a looked-up recipient and reports whether it
// was handed to the transport.
func (r *Relay) Route(ctx context.Context, to Actor, online bool, name string, payload any) bool {
	if !online {
		r.metrics.Dropped("offline")
		if r.logg != nil {
			r.logg.Debug(r.logg.WithField(ctx, "event", name), "recipient offline, event dropped")
		}
		return false
	}
	event, err := NewEvent(name, payload)
	if err != nil {
		r.logError(ctx, name, err)
		return false
	}
	if err := r.sender.Send(to.ConnectionID, event); err != nil {
		r.metrics.Dropped("send_error")
		r.logError(ctx, name, err)
		return false
	}
	return true
}

// Dispatch handles a frame read from a client connection. Registration
// events use the authenticated identity, never ids from the payload.
func (r *Relay) Dispatch(ctx context.Context, connID string, principal Principal, event Event) {
	var profile Profile
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &profile); err != nil {
			r.logError(ctx, event.Name, err)
			return
		}
	}

	switch {
	case event.Name == EventAddUser && principal.Role == enums.ActorRoleCustomer:
		r.AddUser(ctx, connID, principal.EntityID, profile)
	case event.Name == EventAddSeller && principal.Role == enums.ActorRoleSeller:
		r.AddSeller(ctx, connID, principal.EntityID, profile)
	case event.Name == EventAddAdmin && principal.Role == enums.ActorRoleAdmin:
		r.AddAdmin(ctx, connID, principal.EntityID, profile)
	default:
		if r.logg != nil {
			logCtx := r.logg.WithFields(ctx, map[string]any{"event": event.Name, "role": principal.Role.String()})
			r.logg.Warn(logCtx, "unsupported realtime event ignored")
		}
	}
}

func (r *Relay) broadcastActiveSellers(ctx context.Context) {
	event, err := NewEvent(EventActiveSellers, r.dir.ActiveSellers())
	if err != nil {
		r.logError(ctx, EventActiveSellers, err)
		return
	}
	r.sender.Broadcast(event)
}

func (r *Relay) logError(ctx context.Context, name string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Error(r.logg.WithField(ctx, "event", name), "realtime delivery failed", err)
}

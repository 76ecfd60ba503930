package simhost

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/economy-bridge/internal/domain"
	"github.com/viralforge/economy-bridge/internal/ports"
)

// Interaction event types published to the simulator.
const (
	EventChat           = "chat"
	EventInstantMessage = "instant_message"
	EventLoadURL        = "load_url"
	EventAlert          = "alert"
	EventDialog         = "dialog"
)

const unknownUserName = "Unknown User"

// Envelope is the JSON shape of every interaction event.
type Envelope struct {
	Kind      string    `json:"kind"`
	AvatarID  uuid.UUID `json:"avatar_id"`
	RegionID  uuid.UUID `json:"region_id"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Directory is the in-process view of the simulator: which avatars are present where,
// and what they are called. The simulator feeds it through the host bridge RPCs and
// receives user-interaction primitives back as published events.
type Directory struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]domain.Session
	names     map[uuid.UUID]string
	publisher ports.EventPublisher
	nowFn     func() time.Time
}

func NewDirectory(publisher ports.EventPublisher) *Directory {
	return &Directory{
		sessions:  map[uuid.UUID]domain.Session{},
		names:     map[uuid.UUID]string{},
		publisher: publisher,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// AddSession marks an avatar as present. Names are kept after the avatar leaves so
// later notifications can still resolve a sender's display name.
func (d *Directory) AddSession(session domain.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[session.AvatarID] = session
	if session.AvatarName != "" {
		d.names[session.AvatarID] = session.AvatarName
	}
}

func (d *Directory) RemoveSession(avatarID uuid.UUID) (domain.Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[avatarID]
	delete(d.sessions, avatarID)
	return session, ok
}

// RemoveRegion drops every session hosted by a region that went away.
func (d *Directory) RemoveRegion(regionID uuid.UUID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for id, s := range d.sessions {
		if s.RegionID == regionID {
			delete(d.sessions, id)
			n++
		}
	}
	return n
}

func (d *Directory) LocateSession(_ context.Context, avatarID uuid.UUID) (domain.Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	session, ok := d.sessions[avatarID]
	return session, ok
}

func (d *Directory) UserName(_ context.Context, avatarID uuid.UUID) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.names[avatarID]; ok {
		return name
	}
	return unknownUserName
}

func (d *Directory) SendChat(ctx context.Context, to uuid.UUID, msg domain.ChatMessage) error {
	return d.publish(ctx, Envelope{Kind: EventChat, AvatarID: to, RegionID: msg.RegionID, Message: msg.Message, Data: msg})
}

func (d *Directory) SendInstantMessage(ctx context.Context, to uuid.UUID, msg domain.InstantMessage) error {
	return d.publish(ctx, Envelope{Kind: EventInstantMessage, AvatarID: to, RegionID: msg.RegionID, Message: msg.Message, Data: msg})
}

func (d *Directory) SendURL(ctx context.Context, prompt domain.URLPrompt) error {
	return d.publish(ctx, Envelope{Kind: EventLoadURL, AvatarID: prompt.AvatarID, RegionID: prompt.RegionID, Message: prompt.Message, Data: prompt})
}

func (d *Directory) SendAlert(ctx context.Context, regionID, to uuid.UUID, message string) error {
	return d.publish(ctx, Envelope{Kind: EventAlert, AvatarID: to, RegionID: regionID, Message: message})
}

// SendDialog addresses the region hosting the avatar's session. Dialogs are only sent
// to present avatars; one that left in the meantime gets uuid.Nil.
func (d *Directory) SendDialog(ctx context.Context, to uuid.UUID, message string) error {
	session, _ := d.LocateSession(ctx, to)
	return d.publish(ctx, Envelope{Kind: EventDialog, AvatarID: to, RegionID: session.RegionID, Message: message})
}

func (d *Directory) publish(ctx context.Context, env Envelope) error {
	env.EmittedAt = d.nowFn()
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrDeliveryFailed, env.Kind, err)
	}
	if err := d.publisher.Publish(ctx, env.Kind, raw, env.AvatarID.String()); err != nil {
		return fmt.Errorf("%w: publish %s: %v", domain.ErrDeliveryFailed, env.Kind, err)
	}
	return nil
}

var (
	_ ports.Host        = (*Directory)(nil)
	_ ports.Interaction = (*Directory)(nil)
)

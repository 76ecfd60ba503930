package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/viralforge/economy-bridge/internal/domain"
)

// SecretStore holds the current gateway-issued secret per region.
// A Get racing a Set or Clear observes either the old or the new value, never a mix.
type SecretStore interface {
	Get(ctx context.Context, regionID uuid.UUID) (string, bool, error)
	Set(ctx context.Context, regionID uuid.UUID, secret string) error
	Clear(ctx context.Context, regionID uuid.UUID) error
}

// GatewayClient performs one synchronous request against the gateway.
// Errors satisfying domain.IsNoResponse mean no response could be obtained.
type GatewayClient interface {
	Request(ctx context.Context, url, method string, fields domain.ParameterSet) (domain.GatewayResponse, error)
}

// Host is the slice of the simulator the bridge needs to look things up.
type Host interface {
	LocateSession(ctx context.Context, avatarID uuid.UUID) (domain.Session, bool)
	UserName(ctx context.Context, avatarID uuid.UUID) string
}

// Interaction delivers user-visible primitives inside the simulator.
type Interaction interface {
	SendChat(ctx context.Context, to uuid.UUID, msg domain.ChatMessage) error
	SendInstantMessage(ctx context.Context, to uuid.UUID, msg domain.InstantMessage) error
	SendURL(ctx context.Context, prompt domain.URLPrompt) error
	SendAlert(ctx context.Context, regionID, to uuid.UUID, message string) error
	SendDialog(ctx context.Context, to uuid.UUID, message string) error
}

// EventPublisher hands serialized events to the simulator-facing bus.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// CallbackJournal keeps an audit trail of processed callbacks.
type CallbackJournal interface {
	Record(ctx context.Context, rec domain.CallbackRecord) error
}

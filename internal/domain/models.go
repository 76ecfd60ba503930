package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// ModuleName is the name the region module registers under with the gateway.
	ModuleName = "OMBase"
	// ModuleVersion is reported in initializeRegion and answered by notifyIsAlive.
	ModuleVersion = "4.0.3"
)

// Gateway request methods sent by the region side.
const (
	MethodInitializeRegion       = "initializeRegion"
	MethodCloseRegion            = "closeRegion"
	MethodClaimUser              = "claimUser"
	MethodLeaveUser              = "leaveUser"
	MethodVerifyNotification     = "verifyNotification"
	MethodGetNotificationMessage = "getNotificationMessage"
	MethodCheckStatus            = "checkStatus"
	MethodRegisterScript         = "registerScript"
)

// Callback methods the gateway may invoke on the region side.
const (
	CallbackNotifyUser    = "notifyUser"
	CallbackWriteLog      = "writeLog"
	CallbackNotifyIsAlive = "notifyIsAlive"
)

// ParameterSet holds the application-level fields of one request or callback.
// The routing "method" key is never part of it.
type ParameterSet map[string]string

// Clone returns a copy that is safe to mutate.
func (p ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SortedKeys returns the keys in byte-wise order.
func (p ParameterSet) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GatewayResponse is the flat string map returned by the gateway.
type GatewayResponse map[string]string

// SignedCallback is one inbound notification from the gateway.
type SignedCallback struct {
	Method         string
	NotificationID string
	RegionID       uuid.UUID
	Nonce          string
	HashValue      string
	Fields         ParameterSet
}

// Region is one active simulator region served by this process.
type Region struct {
	ID      uuid.UUID
	Name    string
	Address string
}

// Session is an avatar that is fully present in a region.
type Session struct {
	AvatarID      uuid.UUID
	AvatarName    string
	Viewer        string
	ClientAddress string
	RegionID      uuid.UUID
}

// NotificationType is the tag carried by notifyUser callbacks.
type NotificationType int

const (
	NotificationLoadURL        NotificationType = 1
	NotificationInstantMessage NotificationType = 2
	NotificationAlert          NotificationType = 3
	NotificationDialog         NotificationType = 4
	NotificationGiveNotecard   NotificationType = 5
	NotificationChatMessage    NotificationType = 6
)

// MaxInstantMessageLength bounds instant message bodies, counted in runes.
const MaxInstantMessageLength = 1024

// ChatMessage is regional chat delivered to one avatar.
type ChatMessage struct {
	RegionID   uuid.UUID `json:"region_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
}

// InstantMessage is a private message between two avatars.
type InstantMessage struct {
	FromAgentID   uuid.UUID `json:"from_agent_id"`
	ToAgentID     uuid.UUID `json:"to_agent_id"`
	SessionID     uuid.UUID `json:"session_id"`
	FromAgentName string    `json:"from_agent_name"`
	Message       string    `json:"message"`
	RegionID      uuid.UUID `json:"region_id"`
}

// URLPrompt asks an avatar to open a URL.
type URLPrompt struct {
	RegionID   uuid.UUID `json:"region_id"`
	AvatarID   uuid.UUID `json:"avatar_id"`
	ObjectName string    `json:"object_name"`
	Message    string    `json:"message"`
	URL        string    `json:"url"`
}

// Reply is the structured answer to a verified callback.
type Reply struct {
	Success bool
	Version string
	Error   string
}

// Map renders the reply as the wire struct.
func (r Reply) Map() map[string]any {
	out := map[string]any{"success": r.Success}
	if r.Version != "" {
		out["version"] = r.Version
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	return out
}

// CallbackRecord is one journal entry for a processed callback.
type CallbackRecord struct {
	NotificationID string
	RegionID       uuid.UUID
	Method         string
	Accepted       bool
	Success        bool
	Error          string
	ReceivedAt     time.Time
}

package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/viralforge/economy-bridge/internal/adapters/cache"
	"github.com/viralforge/economy-bridge/internal/application"
	"github.com/viralforge/economy-bridge/internal/domain"
)

const testGatewayURL = "http://gateway.test/gateway.php"

var errUnreachable = fmt.Errorf("%w: connection refused", domain.ErrGatewayUnavailable)

type gatewayCall struct {
	url    string
	method string
	fields domain.ParameterSet
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []gatewayCall
	handler func(method string, fields domain.ParameterSet) (domain.GatewayResponse, error)
}

func (g *fakeGateway) Request(_ context.Context, url, method string, fields domain.ParameterSet) (domain.GatewayResponse, error) {
	g.mu.Lock()
	g.calls = append(g.calls, gatewayCall{url: url, method: method, fields: fields.Clone()})
	handler := g.handler
	g.mu.Unlock()
	if handler == nil {
		return domain.GatewayResponse{}, nil
	}
	return handler(method, fields)
}

func (g *fakeGateway) callsFor(method string) []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gatewayCall, 0)
	for _, c := range g.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

type fakeHost struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
	names    map[uuid.UUID]string
}

func newFakeHost() *fakeHost {
	return &fakeHost{sessions: map[uuid.UUID]domain.Session{}, names: map[uuid.UUID]string{}}
}

func (h *fakeHost) add(session domain.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[session.AvatarID] = session
	if session.AvatarName != "" {
		h.names[session.AvatarID] = session.AvatarName
	}
}

func (h *fakeHost) LocateSession(_ context.Context, avatarID uuid.UUID) (domain.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[avatarID]
	return s, ok
}

func (h *fakeHost) UserName(_ context.Context, avatarID uuid.UUID) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n, ok := h.names[avatarID]; ok {
		return n
	}
	return "Unknown User"
}

type delivery struct {
	kind    string
	to      uuid.UUID
	message string
	value   any
}

type fakeInteraction struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (i *fakeInteraction) record(d delivery) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.deliveries = append(i.deliveries, d)
	return nil
}

func (i *fakeInteraction) all() []delivery {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]delivery(nil), i.deliveries...)
}

func (i *fakeInteraction) SendChat(_ context.Context, to uuid.UUID, msg domain.ChatMessage) error {
	return i.record(delivery{kind: "chat", to: to, message: msg.Message, value: msg})
}

func (i *fakeInteraction) SendInstantMessage(_ context.Context, to uuid.UUID, msg domain.InstantMessage) error {
	return i.record(delivery{kind: "im", to: to, message: msg.Message, value: msg})
}

func (i *fakeInteraction) SendURL(_ context.Context, prompt domain.URLPrompt) error {
	return i.record(delivery{kind: "url", to: prompt.AvatarID, message: prompt.Message, value: prompt})
}

func (i *fakeInteraction) SendAlert(_ context.Context, regionID, to uuid.UUID, message string) error {
	return i.record(delivery{kind: "alert", to: to, message: message, value: regionID})
}

func (i *fakeInteraction) SendDialog(_ context.Context, to uuid.UUID, message string) error {
	return i.record(delivery{kind: "dialog", to: to, message: message})
}

type fakeJournal struct {
	mu      sync.Mutex
	records []domain.CallbackRecord
	err     error
}

func (j *fakeJournal) Record(_ context.Context, rec domain.CallbackRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, rec)
	return nil
}

type fixture struct {
	service     *application.Service
	gateway     *fakeGateway
	secrets     *cache.MemorySecretStore
	host        *fakeHost
	interaction *fakeInteraction
	journal     *fakeJournal
	region      domain.Region
}

func newFixture() *fixture {
	f := &fixture{
		gateway:     &fakeGateway{},
		secrets:     cache.NewMemorySecretStore(),
		host:        newFakeHost(),
		interaction: &fakeInteraction{},
		journal:     &fakeJournal{},
		region: domain.Region{
			ID:      uuid.MustParse("c1d50d10-7117-1ff1-b0c4-0800200c9a66"),
			Name:    "Sandbox",
			Address: "http://69.25.198.248:9900/",
		},
	}
	f.service = application.NewService(application.Dependencies{
		Config: application.Config{
			GatewayURL:       testGatewayURL,
			GridURL:          "http://world.dreamnation.net:8003/",
			GridShortName:    "dreamnation",
			SimulatorVersion: "0.9.2",
			ClaimWorkers:     2,
		},
		Gateway:     f.gateway,
		Secrets:     f.secrets,
		Host:        f.host,
		Interaction: f.interaction,
		Journal:     f.journal,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f.service.Regions().Add(f.region)
	return f
}

// gatewayStub answers like a healthy gateway that issued secret to the region.
func (f *fixture) gatewayStub(secret string, payloads map[string]domain.GatewayResponse) func(string, domain.ParameterSet) (domain.GatewayResponse, error) {
	return func(method string, fields domain.ParameterSet) (domain.GatewayResponse, error) {
		switch method {
		case domain.MethodInitializeRegion:
			return domain.GatewayResponse{"regionSecret": secret}, nil
		case domain.MethodVerifyNotification:
			return domain.GatewayResponse{"status": "OK"}, nil
		case domain.MethodGetNotificationMessage:
			if p, ok := payloads[fields["payloadID"]]; ok {
				return p, nil
			}
			return nil, errors.New("unknown payload")
		default:
			return domain.GatewayResponse{"success": "true"}, nil
		}
	}
}

func communication(region uuid.UUID) map[string]string {
	return map[string]string{
		"regionUUID":     region.String(),
		"nonce":          "370619060",
		"notificationID": "3714625",
	}
}

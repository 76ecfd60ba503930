package grpc_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/economy-bridge/internal/adapters/cache"
	"github.com/viralforge/economy-bridge/internal/adapters/events"
	grpcadapter "github.com/viralforge/economy-bridge/internal/adapters/grpc"
	"github.com/viralforge/economy-bridge/internal/adapters/simhost"
	"github.com/viralforge/economy-bridge/internal/application"
	"github.com/viralforge/economy-bridge/internal/domain"
)

type scriptedGateway struct {
	mu      sync.Mutex
	methods []string
}

func (g *scriptedGateway) Request(_ context.Context, _, method string, _ domain.ParameterSet) (domain.GatewayResponse, error) {
	g.mu.Lock()
	g.methods = append(g.methods, method)
	g.mu.Unlock()
	if method == domain.MethodInitializeRegion {
		return domain.GatewayResponse{"regionSecret": "abc123"}, nil
	}
	return domain.GatewayResponse{"success": "true"}, nil
}

func (g *scriptedGateway) seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.methods...)
}

type bridge struct {
	conn      *grpc.ClientConn
	service   *application.Service
	directory *simhost.Directory
	gateway   *scriptedGateway
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := &scriptedGateway{}
	directory := simhost.NewDirectory(events.NewLoggingPublisher(logger))
	svc := application.NewService(application.Dependencies{
		Config:      application.Config{GatewayURL: "http://gateway.test/", ClaimWorkers: 2},
		Gateway:     gw,
		Secrets:     cache.NewMemorySecretStore(),
		Host:        directory,
		Interaction: directory,
		Logger:      logger,
	})

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	grpcadapter.Register(server, grpcadapter.NewHostBridgeServer(svc, directory))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &bridge{conn: conn, service: svc, directory: directory, gateway: gw}
}

func (b *bridge) call(t *testing.T, method string, fields map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	resp := &structpb.Struct{}
	err = b.conn.Invoke(context.Background(), "/viralforge.economy.v1.HostBridgeService/"+method, req, resp)
	return resp, err
}

func TestHostBridgeRegionLifecycle(t *testing.T) {
	t.Parallel()

	b := newBridge(t)
	regionID := uuid.New()

	resp, err := b.call(t, "ActivateRegion", map[string]any{
		"region_id": regionID.String(),
		"name":      "Sandbox",
		"address":   "http://10.0.0.5:9000/",
	})
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["initialized"].GetBoolValue())
	_, ok := b.service.Regions().Get(regionID)
	assert.True(t, ok)

	avatarID := uuid.New()
	_, err = b.call(t, "AvatarEntered", map[string]any{
		"avatar_id":      avatarID.String(),
		"avatar_name":    "Dana Receiver",
		"client_address": "203.0.113.7",
		"region_id":      regionID.String(),
	})
	require.NoError(t, err)
	session, ok := b.directory.LocateSession(context.Background(), avatarID)
	require.True(t, ok)
	assert.Equal(t, regionID, session.RegionID)

	resp, err = b.call(t, "AvatarLeft", map[string]any{"avatar_id": avatarID.String()})
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["accepted"].GetBoolValue())
	_, ok = b.directory.LocateSession(context.Background(), avatarID)
	assert.False(t, ok)

	resp, err = b.call(t, "DeactivateRegion", map[string]any{"region_id": regionID.String()})
	require.NoError(t, err)
	assert.Equal(t, float64(0), resp.GetFields()["sessions_dropped"].GetNumberValue())

	require.NoError(t, b.service.Close(context.Background()))
	assert.Subset(t, b.gateway.seen(), []string{
		domain.MethodInitializeRegion,
		domain.MethodClaimUser,
		domain.MethodLeaveUser,
	})
}

func TestHostBridgeRejectsBadIdentifiers(t *testing.T) {
	t.Parallel()

	b := newBridge(t)

	_, err := b.call(t, "ActivateRegion", map[string]any{"name": "Sandbox"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = b.call(t, "AvatarEntered", map[string]any{"avatar_id": "nope", "region_id": uuid.NewString()})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = b.call(t, "AvatarLeft", map[string]any{"avatar_id": uuid.NewString(), "region_id": "nope"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = b.call(t, "DeactivateRegion", map[string]any{"region_id": uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

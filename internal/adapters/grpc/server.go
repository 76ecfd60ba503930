package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/economy-bridge/internal/application"
	"github.com/viralforge/economy-bridge/internal/domain"
)

const serviceName = "viralforge.economy.v1.HostBridgeService"

// HostBridgeService is how the simulator reports region lifecycle and presence.
type HostBridgeService interface {
	ActivateRegion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeactivateRegion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AvatarEntered(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AvatarLeft(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// SessionDirectory is the presence state the bridge keeps in sync.
type SessionDirectory interface {
	AddSession(domain.Session)
	RemoveSession(uuid.UUID) (domain.Session, bool)
	RemoveRegion(uuid.UUID) int
}

type HostBridgeServer struct {
	service   *application.Service
	directory SessionDirectory
}

func NewHostBridgeServer(service *application.Service, directory SessionDirectory) *HostBridgeServer {
	return &HostBridgeServer{service: service, directory: directory}
}

func Register(server grpc.ServiceRegistrar, svc HostBridgeService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*HostBridgeService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "ActivateRegion", Handler: unaryHandler("ActivateRegion", svc.ActivateRegion)},
			{MethodName: "DeactivateRegion", Handler: unaryHandler("DeactivateRegion", svc.DeactivateRegion)},
			{MethodName: "AvatarEntered", Handler: unaryHandler("AvatarEntered", svc.AvatarEntered)},
			{MethodName: "AvatarLeft", Handler: unaryHandler("AvatarLeft", svc.AvatarLeft)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "contracts/proto/economy/v1/host_bridge.proto",
	}, svc)
}

// ActivateRegion registers a region and runs the secret exchange. A region whose
// exchange failed stays active and reports initialized=false.
func (s *HostBridgeServer) ActivateRegion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	regionID, err := uuidField(req, "region_id")
	if err != nil {
		return nil, err
	}
	err = s.service.ActivateRegion(ctx, domain.Region{
		ID:      regionID,
		Name:    stringField(req, "name"),
		Address: stringField(req, "address"),
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return newStruct(map[string]any{
		"region_id":   regionID.String(),
		"activated":   true,
		"initialized": err == nil,
	})
}

func (s *HostBridgeServer) DeactivateRegion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	regionID, err := uuidField(req, "region_id")
	if err != nil {
		return nil, err
	}
	if err := s.service.DeactivateRegion(ctx, regionID); err != nil {
		if errors.Is(err, domain.ErrRegionUnknown) {
			return nil, status.Error(codes.NotFound, "region is not active")
		}
		return nil, status.Errorf(codes.Internal, "deactivate region: %v", err)
	}
	dropped := s.directory.RemoveRegion(regionID)
	return newStruct(map[string]any{
		"region_id":        regionID.String(),
		"sessions_dropped": dropped,
	})
}

// AvatarEntered records the session and forwards the claim to the gateway in the
// background.
func (s *HostBridgeServer) AvatarEntered(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	avatarID, err := uuidField(req, "avatar_id")
	if err != nil {
		return nil, err
	}
	regionID, err := uuidField(req, "region_id")
	if err != nil {
		return nil, err
	}
	session := domain.Session{
		AvatarID:      avatarID,
		AvatarName:    stringField(req, "avatar_name"),
		Viewer:        stringField(req, "viewer"),
		ClientAddress: stringField(req, "client_address"),
		RegionID:      regionID,
	}
	s.directory.AddSession(session)
	s.service.OnEnter(ctx, session)
	return newStruct(map[string]any{"accepted": true})
}

// AvatarLeft reports the departure before dropping the session so that a missing
// region_id can still be resolved from presence state.
func (s *HostBridgeServer) AvatarLeft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	avatarID, err := uuidField(req, "avatar_id")
	if err != nil {
		return nil, err
	}
	regionID := uuid.Nil
	if raw := stringField(req, "region_id"); raw != "" {
		if regionID, err = uuid.Parse(raw); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid region_id")
		}
	}
	s.service.OnLeave(ctx, avatarID, regionID)
	_, known := s.directory.RemoveSession(avatarID)
	return newStruct(map[string]any{"accepted": known})
}

func stringField(req *structpb.Struct, key string) string {
	v := req.GetFields()[key]
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func uuidField(req *structpb.Struct, key string) (uuid.UUID, error) {
	raw := stringField(req, key)
	if raw == "" {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "missing %s", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s", key)
	}
	return id, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func unaryHandler(method string, call func(context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

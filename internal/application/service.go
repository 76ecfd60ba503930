package application

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/viralforge/economy-bridge/internal/domain"
	"github.com/viralforge/economy-bridge/internal/ports"
)

// Config is the immutable slice of runtime configuration the use-cases need.
type Config struct {
	GatewayURL       string
	GridURL          string
	GridShortName    string
	SimulatorVersion string
	ModuleVersion    string
	ClaimWorkers     int
}

// Service implements the region side of the economy gateway protocol: secret
// lifecycle, callback verification, dispatch and presence forwarding.
type Service struct {
	cfg         Config
	gateway     ports.GatewayClient
	secrets     ports.SecretStore
	host        ports.Host
	interaction ports.Interaction
	journal     ports.CallbackJournal
	regions     *RegionRegistry
	claims      *ClaimPool
	initFlights singleflight.Group
	logger      *slog.Logger
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Gateway     ports.GatewayClient
	Secrets     ports.SecretStore
	Host        ports.Host
	Interaction ports.Interaction
	Journal     ports.CallbackJournal
	Regions     *RegionRegistry
	Logger      *slog.Logger
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		cfg:         deps.Config,
		gateway:     deps.Gateway,
		secrets:     deps.Secrets,
		host:        deps.Host,
		interaction: deps.Interaction,
		journal:     deps.Journal,
		regions:     deps.Regions,
		logger:      deps.Logger,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
	if s.cfg.ModuleVersion == "" {
		s.cfg.ModuleVersion = domain.ModuleVersion
	}
	if s.regions == nil {
		s.regions = NewRegionRegistry()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("module", "application", "layer", "application")
	s.claims = NewClaimPool(s.cfg.ClaimWorkers)
	return s
}

// Regions exposes the registry of regions this process serves.
func (s *Service) Regions() *RegionRegistry {
	return s.regions
}

// Close waits for in-flight background claims to finish or ctx to expire.
func (s *Service) Close(ctx context.Context) error {
	return s.claims.Close(ctx)
}

func (s *Service) request(ctx context.Context, method string, fields domain.ParameterSet) (domain.GatewayResponse, error) {
	return s.gateway.Request(ctx, s.cfg.GatewayURL, method, fields)
}

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	cacheadapter "github.com/viralforge/economy-bridge/internal/adapters/cache"
	"github.com/viralforge/economy-bridge/internal/adapters/gateway"
	"github.com/viralforge/economy-bridge/internal/application"
	"github.com/viralforge/economy-bridge/internal/domain"
)

// NewAdminService builds a service for console commands. It talks to the gateway only
// and keeps no presence or journal state.
func NewAdminService(ctx context.Context, cfg Config, logger *slog.Logger) (*application.Service, error) {
	if ok, reason := cfg.ModuleStatus(); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModuleDisabled, reason)
	}
	client := gateway.NewClient(cfg.GatewayTimeout)
	gatewayURL, err := application.DiscoverGatewayURL(ctx, client, cfg.InitURL, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("discover gateway: %w", err)
	}
	return application.NewService(application.Dependencies{
		Config: application.Config{
			GatewayURL:       gatewayURL,
			GridURL:          cfg.GridURL,
			GridShortName:    cfg.GridShortName,
			SimulatorVersion: cfg.SimulatorVersion,
		},
		Gateway: client,
		Secrets: cacheadapter.NewMemorySecretStore(),
		Logger:  logger,
	}), nil
}

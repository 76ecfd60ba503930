package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/viralforge/economy-bridge/internal/domain"
	"github.com/viralforge/economy-bridge/internal/ports"
)

// DiscoverGatewayURL asks the initialization endpoint where the gateway for this
// module version and environment lives.
func DiscoverGatewayURL(ctx context.Context, client ports.GatewayClient, initURL, environment string) (string, error) {
	resp, err := client.Request(ctx, initURL, "", domain.ParameterSet{
		"moduleName":         domain.ModuleName,
		"moduleVersion":      domain.ModuleVersion,
		"gatewayEnvironment": environment,
	})
	if err != nil {
		return "", err
	}
	gatewayURL := strings.TrimSpace(resp["gatewayURL"])
	if gatewayURL == "" {
		return "", fmt.Errorf("%w: initialization reply lacks gatewayURL", domain.ErrProtocol)
	}
	return gatewayURL, nil
}

// ConnectionStatus is the outcome of the test-connection console command.
type ConnectionStatus struct {
	GridURL   string
	Reachable bool
}

// CheckStatus asks the gateway whether it is up. Only an explicit INSOMNIA status counts as reachable.
func (s *Service) CheckStatus(ctx context.Context) ConnectionStatus {
	out := ConnectionStatus{GridURL: s.cfg.GridURL}
	resp, err := s.request(ctx, domain.MethodCheckStatus, domain.ParameterSet{})
	if err != nil {
		return out
	}
	out.Reachable = resp["status"] == "INSOMNIA"
	return out
}

// RegistrationRequest carries the operator's answers for grid registration.
type RegistrationRequest struct {
	GridShortName string
	GridLongName  string
}

// RegisterModule performs the one-time grid registration and returns the URL of the
// in-world terminal script.
func (s *Service) RegisterModule(ctx context.Context, req RegistrationRequest) (string, error) {
	if strings.TrimSpace(req.GridShortName) == "" || strings.TrimSpace(req.GridLongName) == "" {
		return "", fmt.Errorf("%w: grid short and long names are required", domain.ErrInvalidInput)
	}
	resp, err := s.request(ctx, domain.MethodRegisterScript, domain.ParameterSet{
		"gridShortName":   strings.TrimSpace(req.GridShortName),
		"gridLongName":    strings.TrimSpace(req.GridLongName),
		"gridDescription": "",
		"gridURL":         s.cfg.GridURL,
	})
	if err != nil {
		return "", err
	}
	if resp["success"] != "TRUE" {
		return "", fmt.Errorf("%w: grid registration refused", domain.ErrProtocol)
	}
	return resp["scriptURL"], nil
}

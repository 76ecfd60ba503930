package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/viralforge/economy-bridge/internal/domain"
)

// RegionRegistry is the set of regions currently active in this process.
type RegionRegistry struct {
	mu      sync.RWMutex
	regions map[uuid.UUID]domain.Region
}

func NewRegionRegistry() *RegionRegistry {
	return &RegionRegistry{regions: map[uuid.UUID]domain.Region{}}
}

func (r *RegionRegistry) Add(region domain.Region) {
	r.mu.Lock()
	r.regions[region.ID] = region
	r.mu.Unlock()
}

func (r *RegionRegistry) Remove(id uuid.UUID) (domain.Region, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	region, ok := r.regions[id]
	delete(r.regions, id)
	return region, ok
}

func (r *RegionRegistry) Get(id uuid.UUID) (domain.Region, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	region, ok := r.regions[id]
	return region, ok
}

// List returns the active regions ordered by identifier.
func (r *RegionRegistry) List() []domain.Region {
	r.mu.RLock()
	out := make([]domain.Region, 0, len(r.regions))
	for _, region := range r.regions {
		out = append(out, region)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// ActivateRegion registers a region and obtains its secret before the region is
// reported ready. The region stays registered when initialization fails so that the
// next rejected callback can retry the exchange.
func (s *Service) ActivateRegion(ctx context.Context, region domain.Region) error {
	if region.ID == uuid.Nil {
		return fmt.Errorf("%w: region id is required", domain.ErrInvalidInput)
	}
	s.regions.Add(region)
	s.logger.InfoContext(ctx, "region activated",
		"operation", "activate_region",
		"outcome", "success",
		"region_id", region.ID.String(),
		"region_name", region.Name,
	)
	return s.InitializeRegion(ctx, region.ID)
}

// DeactivateRegion removes a region and discards its secret.
func (s *Service) DeactivateRegion(ctx context.Context, regionID uuid.UUID) error {
	if _, ok := s.regions.Remove(regionID); !ok {
		return domain.ErrRegionUnknown
	}
	if err := s.secrets.Clear(ctx, regionID); err != nil {
		s.logger.WarnContext(ctx, "clear region secret failed",
			"operation", "deactivate_region",
			"outcome", "failure",
			"region_id", regionID.String(),
			"error", err,
		)
	}
	s.logger.InfoContext(ctx, "region deactivated",
		"operation", "deactivate_region",
		"outcome", "success",
		"region_id", regionID.String(),
	)
	return nil
}

// InitializeRegion discards the current secret and requests a fresh one. Concurrent
// calls for the same region share one initializeRegion exchange, so the stored secret
// is always the last one the gateway issued.
func (s *Service) InitializeRegion(ctx context.Context, regionID uuid.UUID) error {
	_, err, _ := s.initFlights.Do(regionID.String(), func() (any, error) {
		return nil, s.initializeRegion(ctx, regionID)
	})
	return err
}

func (s *Service) initializeRegion(ctx context.Context, regionID uuid.UUID) error {
	region, ok := s.regions.Get(regionID)
	if !ok {
		return domain.ErrRegionUnknown
	}
	if err := s.secrets.Clear(ctx, regionID); err != nil {
		return fmt.Errorf("clear region secret: %w", err)
	}

	resp, err := s.request(ctx, domain.MethodInitializeRegion, domain.ParameterSet{
		"regionIP":         region.Address,
		"regionName":       region.Name,
		"regionUUID":       region.ID.String(),
		"gridURL":          s.cfg.GridURL,
		"gridShortName":    s.cfg.GridShortName,
		"simulatorVersion": s.cfg.SimulatorVersion,
		"moduleVersion":    s.cfg.ModuleVersion,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "error reading region secret",
			"operation", "initialize_region",
			"outcome", "failure",
			"region_id", regionID.String(),
			"error", err,
		)
		return err
	}
	secret, ok := resp["regionSecret"]
	if !ok {
		s.logger.ErrorContext(ctx, "gateway reply carries no region secret",
			"operation", "initialize_region",
			"outcome", "failure",
			"region_id", regionID.String(),
		)
		return fmt.Errorf("%w: initializeRegion reply lacks regionSecret", domain.ErrProtocol)
	}
	if err := s.secrets.Set(ctx, regionID, secret); err != nil {
		return fmt.Errorf("store region secret: %w", err)
	}
	s.logger.InfoContext(ctx, "region initialized successfully",
		"operation", "initialize_region",
		"outcome", "success",
		"region_id", regionID.String(),
	)
	return nil
}

// Shutdown tells the gateway that every region served here is closing, in one
// closeRegion request for the grid, then forgets all secrets and regions.
func (s *Service) Shutdown(ctx context.Context) error {
	regions := s.regions.List()
	if len(regions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(regions))
	for _, r := range regions {
		ids = append(ids, r.ID.String())
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode region list: %w", err)
	}

	_, reqErr := s.request(ctx, domain.MethodCloseRegion, domain.ParameterSet{
		"gridURL":       s.cfg.GridURL,
		"gridShortName": s.cfg.GridShortName,
		"regions":       string(encoded),
	})
	if reqErr != nil {
		s.logger.WarnContext(ctx, "close region notification failed",
			"operation", "close_region",
			"outcome", "failure",
			"region_count", len(ids),
			"error", reqErr,
		)
	}

	for _, r := range regions {
		s.regions.Remove(r.ID)
		_ = s.secrets.Clear(ctx, r.ID)
	}
	s.logger.InfoContext(ctx, "regions closed",
		"operation", "close_region",
		"outcome", "success",
		"region_count", len(ids),
	)
	return reqErr
}

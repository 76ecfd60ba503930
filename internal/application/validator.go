package application

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"

	"github.com/viralforge/economy-bridge/internal/domain"
)

// Validate authenticates a callback against the region's current secret.
//
// The gateway's verifyNotification answer is authoritative. When the callback carries
// its own hashValue, a local comparison runs first and rejects without a round-trip.
// Every rejection discards the region secret and re-runs initializeRegion before
// returning, so the next callback is checked against a fresh secret. The rejected
// callback itself is never retried.
func (s *Service) Validate(ctx context.Context, cb domain.SignedCallback) error {
	secret, ok, err := s.secrets.Get(ctx, cb.RegionID)
	if err != nil {
		s.logger.WarnContext(ctx, "region secret lookup failed",
			"operation", "validate_callback",
			"region_id", cb.RegionID.String(),
			"error", err,
		)
		ok = false
	}
	if !ok {
		return s.reject(ctx, cb, "missing_secret")
	}

	expected := domain.Sign(cb.Fields, cb.Nonce, secret)
	if cb.HashValue != "" && subtle.ConstantTimeCompare([]byte(expected), []byte(cb.HashValue)) != 1 {
		return s.reject(ctx, cb, "local_hash_mismatch")
	}

	resp, err := s.request(ctx, domain.MethodVerifyNotification, domain.ParameterSet{
		"notificationID": cb.NotificationID,
		"regionUUID":     cb.RegionID.String(),
		"hashValue":      expected,
	})
	if err != nil {
		return s.reject(ctx, cb, "gateway_unavailable")
	}
	if resp["status"] != "OK" {
		return s.reject(ctx, cb, "gateway_rejected")
	}
	return nil
}

func (s *Service) reject(ctx context.Context, cb domain.SignedCallback, reason string) error {
	s.logger.WarnContext(ctx, "notification rejected",
		"operation", "validate_callback",
		"outcome", "failure",
		"reason", reason,
		"region_id", cb.RegionID.String(),
		"notification_id", cb.NotificationID,
		"callback_method", cb.Method,
	)
	s.refreshSecret(ctx, cb.RegionID)
	return fmt.Errorf("%w: %s", domain.ErrAuthenticationFailed, reason)
}

// refreshSecret discards a region secret and tries once to obtain a new one. For an
// active region the clear happens inside InitializeRegion so it cannot interleave with
// a concurrent refresh.
func (s *Service) refreshSecret(ctx context.Context, regionID uuid.UUID) {
	if _, ok := s.regions.Get(regionID); !ok {
		if err := s.secrets.Clear(ctx, regionID); err != nil {
			s.logger.WarnContext(ctx, "clear region secret failed",
				"operation", "refresh_secret",
				"outcome", "failure",
				"region_id", regionID.String(),
				"error", err,
			)
		}
		s.logger.InfoContext(ctx, "secret refresh skipped for inactive region",
			"operation", "refresh_secret",
			"outcome", "skipped",
			"region_id", regionID.String(),
		)
		return
	}
	if err := s.InitializeRegion(ctx, regionID); err != nil {
		s.logger.WarnContext(ctx, "secret refresh failed",
			"operation", "refresh_secret",
			"outcome", "failure",
			"region_id", regionID.String(),
			"error", err,
		)
	}
}

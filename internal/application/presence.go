package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/viralforge/economy-bridge/internal/domain"
)

// ServiceUnavailableMessage is shown once to an avatar whose claim got no answer.
const ServiceUnavailableMessage = "The currency service is not available. Please try again later."

// OnEnter announces an avatar that became fully present. The claimUser request runs
// in the claim pool; OnEnter itself never waits on the gateway.
func (s *Service) OnEnter(ctx context.Context, session domain.Session) {
	region, ok := s.regions.Get(session.RegionID)
	if !ok {
		s.logger.WarnContext(ctx, "avatar entered an inactive region",
			"operation", "claim_user",
			"outcome", "skipped",
			"avatar_id", session.AvatarID.String(),
			"region_id", session.RegionID.String(),
		)
		return
	}

	fields := domain.ParameterSet{
		"avatarUUID":    session.AvatarID.String(),
		"avatarName":    session.AvatarName,
		"language":      "ENG",
		"viewer":        session.Viewer,
		"clientIP":      "http://" + session.ClientAddress + "/",
		"regionUUID":    region.ID.String(),
		"gridURL":       s.cfg.GridURL,
		"gridShortName": s.cfg.GridShortName,
		"regionIP":      region.Address,
	}
	bg := context.WithoutCancel(ctx)
	submitted := s.claims.TrySubmit(func() {
		if _, err := s.request(bg, domain.MethodClaimUser, fields); err != nil {
			s.notifyServiceUnavailable(bg, session.AvatarID, err)
		}
	})
	if !submitted {
		s.logger.WarnContext(ctx, "claim pool saturated",
			"operation", "claim_user",
			"outcome", "failure",
			"avatar_id", session.AvatarID.String(),
		)
		s.notifyServiceUnavailable(bg, session.AvatarID, nil)
	}
}

func (s *Service) notifyServiceUnavailable(ctx context.Context, avatarID uuid.UUID, cause error) {
	s.logger.WarnContext(ctx, "claim user got no response",
		"operation", "claim_user",
		"outcome", "failure",
		"avatar_id", avatarID.String(),
		"error", cause,
	)
	if _, present := s.host.LocateSession(ctx, avatarID); !present {
		return
	}
	if err := s.interaction.SendDialog(ctx, avatarID, ServiceUnavailableMessage); err != nil {
		s.logger.WarnContext(ctx, "service unavailable message not delivered",
			"operation", "claim_user",
			"avatar_id", avatarID.String(),
			"error", err,
		)
	}
}

// OnLeave reports a closed session. Failures are logged and swallowed: a departing
// avatar is never held up by the gateway. A nil regionID is resolved from the host.
func (s *Service) OnLeave(ctx context.Context, avatarID, regionID uuid.UUID) {
	if regionID == uuid.Nil {
		if session, ok := s.host.LocateSession(ctx, avatarID); ok {
			regionID = session.RegionID
		}
	}
	if _, ok := s.regions.Get(regionID); !ok {
		return
	}

	_, err := s.request(ctx, domain.MethodLeaveUser, domain.ParameterSet{
		"avatarUUID": avatarID.String(),
		"regionUUID": regionID.String(),
	})
	if err != nil {
		s.logger.DebugContext(ctx, "leave user failed",
			"operation", "leave_user",
			"outcome", "failure",
			"avatar_id", avatarID.String(),
			"region_id", regionID.String(),
			"error", err,
		)
	}
}

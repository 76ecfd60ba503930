package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/viralforge/economy-bridge/internal/domain"
)

const economyObjectName = "OMEconomy"

// ParseCallback builds a SignedCallback from the two XML-RPC argument structs.
// The method key is split off requestData; everything else is signed content.
func ParseCallback(requestData, communicationData map[string]string) (domain.SignedCallback, error) {
	method := strings.TrimSpace(requestData["method"])
	if method == "" {
		return domain.SignedCallback{}, fmt.Errorf("%w: method is required", domain.ErrInvalidInput)
	}
	regionID, err := uuid.Parse(strings.TrimSpace(communicationData["regionUUID"]))
	if err != nil {
		return domain.SignedCallback{}, fmt.Errorf("%w: regionUUID: %v", domain.ErrInvalidInput, err)
	}

	fields := make(domain.ParameterSet, len(requestData))
	for k, v := range requestData {
		if k == "method" {
			continue
		}
		fields[k] = v
	}
	return domain.SignedCallback{
		Method:         method,
		NotificationID: communicationData["notificationID"],
		RegionID:       regionID,
		Nonce:          communicationData["nonce"],
		HashValue:      strings.ToLower(strings.TrimSpace(communicationData["hashValue"])),
		Fields:         fields,
	}, nil
}

// HandleNotification is the inbound callback entry point: it authenticates, dispatches
// and journals one callback. Authentication failures come back as errors; dispatch
// failures come back as a Reply with Success false.
func (s *Service) HandleNotification(ctx context.Context, requestData, communicationData map[string]string) (domain.Reply, error) {
	cb, err := ParseCallback(requestData, communicationData)
	if err != nil {
		return domain.Reply{}, err
	}
	rec := domain.CallbackRecord{
		NotificationID: cb.NotificationID,
		RegionID:       cb.RegionID,
		Method:         cb.Method,
		ReceivedAt:     s.nowFn(),
	}

	if err := s.Validate(ctx, cb); err != nil {
		rec.Error = "authentication_failed"
		s.recordCallback(ctx, rec)
		return domain.Reply{}, err
	}
	rec.Accepted = true

	reply := s.Dispatch(ctx, cb)
	rec.Success = reply.Success
	rec.Error = reply.Error
	s.recordCallback(ctx, rec)
	return reply, nil
}

// Dispatch routes a verified callback by method.
func (s *Service) Dispatch(ctx context.Context, cb domain.SignedCallback) domain.Reply {
	switch cb.Method {
	case domain.CallbackNotifyUser:
		if err := s.notifyUser(ctx, cb.Fields); err != nil {
			s.logger.ErrorContext(ctx, "user notification failed",
				"operation", "notify_user",
				"outcome", "failure",
				"notification_id", cb.NotificationID,
				"error", err,
			)
			return domain.Reply{Success: false, Error: domain.ErrorCode(err)}
		}
		return domain.Reply{Success: true}
	case domain.CallbackWriteLog:
		return s.writeLog(ctx, cb)
	case domain.CallbackNotifyIsAlive:
		return s.isAlive(ctx, cb.Fields)
	default:
		s.logger.ErrorContext(ctx, "callback method is not supported",
			"operation", "dispatch_callback",
			"outcome", "failure",
			"callback_method", cb.Method,
		)
		return domain.Reply{Success: false, Error: domain.ErrorCode(domain.ErrUnsupportedMethod)}
	}
}

func (s *Service) writeLog(ctx context.Context, cb domain.SignedCallback) domain.Reply {
	s.logger.WarnContext(ctx, "gateway log message",
		"operation", "gateway_write_log",
		"outcome", "success",
		"region_id", cb.RegionID.String(),
		"message", cb.Fields["message"],
	)
	return domain.Reply{Success: true}
}

func (s *Service) isAlive(ctx context.Context, fields domain.ParameterSet) domain.Reply {
	raw, ok := fields["avatarUUID"]
	if !ok {
		return domain.Reply{Success: true, Version: s.cfg.ModuleVersion}
	}
	avatarID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return domain.Reply{Success: false, Error: domain.ErrorCode(domain.ErrInvalidInput)}
	}
	if _, present := s.host.LocateSession(ctx, avatarID); !present {
		return domain.Reply{Success: false}
	}
	return domain.Reply{Success: true}
}

func (s *Service) notifyUser(ctx context.Context, fields domain.ParameterSet) error {
	receiverID, err := uuid.Parse(strings.TrimSpace(fields["receiverUUID"]))
	if err != nil {
		return fmt.Errorf("%w: receiverUUID: %v", domain.ErrInvalidInput, err)
	}
	payloadID := fields["payloadID"]

	payload, err := s.request(ctx, domain.MethodGetNotificationMessage, domain.ParameterSet{"payloadID": payloadID})
	if err != nil {
		return fmt.Errorf("%w: payload %s: %v", domain.ErrPayloadUnavailable, payloadID, err)
	}

	kind, err := notificationType(fields, payload)
	if err != nil {
		return err
	}

	session, ok := s.host.LocateSession(ctx, receiverID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, receiverID)
	}
	region, ok := s.regions.Get(session.RegionID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSceneNotFound, session.RegionID)
	}

	message := payload["message"]
	switch kind {
	case domain.NotificationLoadURL:
		return s.interaction.SendURL(ctx, domain.URLPrompt{
			RegionID:   region.ID,
			AvatarID:   receiverID,
			ObjectName: economyObjectName,
			Message:    message,
			URL:        payload["url"],
		})
	case domain.NotificationChatMessage:
		return s.deliverChat(ctx, region, receiverID, payload)
	case domain.NotificationAlert:
		return s.interaction.SendAlert(ctx, region.ID, receiverID, message)
	case domain.NotificationDialog:
		return s.interaction.SendDialog(ctx, receiverID, message)
	case domain.NotificationGiveNotecard:
		return nil
	case domain.NotificationInstantMessage:
		return s.deliverInstantMessage(ctx, region, receiverID, payload)
	default:
		s.logger.DebugContext(ctx, "notification type ignored",
			"operation", "notify_user",
			"outcome", "skipped",
			"notification_type", int(kind),
		)
		return nil
	}
}

func (s *Service) deliverChat(ctx context.Context, region domain.Region, receiverID uuid.UUID, payload domain.GatewayResponse) error {
	senderID, err := uuid.Parse(strings.TrimSpace(payload["senderUUID"]))
	if err != nil {
		return fmt.Errorf("%w: senderUUID: %v", domain.ErrInvalidInput, err)
	}
	msg := domain.ChatMessage{
		RegionID:   region.ID,
		SenderID:   senderID,
		SenderName: s.host.UserName(ctx, senderID),
		Message:    payload["message"],
	}
	if err := s.interaction.SendChat(ctx, receiverID, msg); err != nil {
		return err
	}
	if _, present := s.host.LocateSession(ctx, senderID); present {
		return s.interaction.SendChat(ctx, senderID, msg)
	}
	return nil
}

func (s *Service) deliverInstantMessage(ctx context.Context, region domain.Region, receiverID uuid.UUID, payload domain.GatewayResponse) error {
	senderID, err := uuid.Parse(strings.TrimSpace(payload["senderUUID"]))
	if err != nil {
		return fmt.Errorf("%w: senderUUID: %v", domain.ErrInvalidInput, err)
	}
	sessionID, err := uuid.Parse(strings.TrimSpace(payload["sessionUUID"]))
	if err != nil {
		return fmt.Errorf("%w: sessionUUID: %v", domain.ErrInvalidInput, err)
	}
	senderName, ok := payload["senderName"]
	if !ok {
		senderName = s.host.UserName(ctx, senderID)
	}

	msg := domain.InstantMessage{
		FromAgentID:   senderID,
		ToAgentID:     receiverID,
		SessionID:     sessionID,
		FromAgentName: senderName,
		Message:       truncateRunes(payload["message"], domain.MaxInstantMessageLength),
		RegionID:      region.ID,
	}
	if err := s.interaction.SendInstantMessage(ctx, receiverID, msg); err != nil {
		return err
	}
	if _, present := s.host.LocateSession(ctx, senderID); present {
		return s.interaction.SendInstantMessage(ctx, senderID, msg)
	}
	return nil
}

// notificationType reads the type tag from the callback, falling back to the payload.
func notificationType(fields domain.ParameterSet, payload domain.GatewayResponse) (domain.NotificationType, error) {
	raw, ok := fields["type"]
	if !ok {
		raw, ok = payload["type"]
	}
	if !ok {
		return 0, fmt.Errorf("%w: notification type missing", domain.ErrInvalidInput)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: notification type %q", domain.ErrInvalidInput, raw)
	}
	return domain.NotificationType(n), nil
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func (s *Service) recordCallback(ctx context.Context, rec domain.CallbackRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "callback journal write failed",
			"operation", "record_callback",
			"outcome", "failure",
			"notification_id", rec.NotificationID,
			"error", err,
		)
	}
}

package domain

import "errors"

var (
	// ErrGatewayUnavailable covers connection failures, timeouts and non-2xx replies.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrGatewayDecode is returned when the gateway body is not a flat JSON object.
	ErrGatewayDecode = errors.New("gateway response malformed")
	// ErrProtocol signals a decoded response that lacks a key the method requires.
	ErrProtocol = errors.New("gateway protocol violation")

	ErrAuthenticationFailed = errors.New("notification authentication failed")
	ErrRegionUnknown        = errors.New("region not active")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSceneNotFound        = errors.New("scene not found")
	ErrPayloadUnavailable   = errors.New("notification payload unavailable")
	ErrUnsupportedMethod    = errors.New("unsupported method")
	ErrInvalidInput         = errors.New("invalid input")
	ErrDeliveryFailed       = errors.New("delivery failed")
	ErrModuleDisabled       = errors.New("economy module disabled")
)

// IsNoResponse reports whether err means no gateway response could be obtained.
// Transport and decode failures are handled identically by every caller.
func IsNoResponse(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable) || errors.Is(err, ErrGatewayDecode)
}

// ErrorCode maps an error to the short code placed in failure replies.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSceneNotFound):
		return "scene_not_found"
	case errors.Is(err, ErrPayloadUnavailable):
		return "payload_unavailable"
	case errors.Is(err, ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, ErrModuleDisabled):
		return "module_disabled"
	default:
		return "internal_error"
	}
}

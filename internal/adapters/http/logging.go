package http

import (
	"context"
	"log/slog"
)

const serviceName = "economy-bridge"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// callbackRef names the callback a log line is about. Both fields are empty when the
// body could not be decoded.
type callbackRef struct {
	method         string
	notificationID string
	regionID       string
}

func refFrom(requestData, communicationData map[string]string) callbackRef {
	return callbackRef{
		method:         requestData["method"],
		notificationID: communicationData["notificationID"],
		regionID:       communicationData["regionUUID"],
	}
}

// callbackFailureFields builds the attributes of a rejected or failed callback.
// Faults travel in a 200 response, so the fault code is logged as error_code.
func callbackFailureFields(ctx context.Context, operation string, statusCode int, code, message string, ref callbackRef, err error) []any {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	}
	if ref.method != "" {
		fields = append(fields, "callback_method", ref.method)
	}
	if ref.notificationID != "" {
		fields = append(fields, "notification_id", ref.notificationID)
	}
	if ref.regionID != "" {
		fields = append(fields, "region_id", ref.regionID)
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	return fields
}

func logCallbackFailure(ctx context.Context, operation string, statusCode int, code, message string, ref callbackRef, err error) {
	fields := callbackFailureFields(ctx, operation, statusCode, code, message, ref, err)
	if statusCode >= 500 {
		httpLogger().ErrorContext(ctx, "callback failed", fields...)
		return
	}
	httpLogger().WarnContext(ctx, "callback failed", fields...)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/viralforge/economy-bridge/internal/domain"
)

const maxBodyBytes = 1 << 20

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	if h.service == nil {
		writeSuccess(w, http.StatusOK, map[string]any{"enabled": false, "regions": 0})
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"enabled": true,
		"regions": len(h.service.Regions().List()),
	})
}

func (h *Handler) xmlrpcNotification(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	requestData, communicationData, err := decodeNotification(r.Body)
	if err != nil {
		observeCallback("", "malformed")
		code, msg := mapFault(err)
		logCallbackFailure(r.Context(), "xmlrpc_notification", http.StatusOK, faultCode(code), msg, callbackRef{}, err)
		writeXMLFault(w, code, msg)
		return
	}

	reply, err := h.handle(r.Context(), requestData, communicationData)
	if err != nil {
		code, msg := mapFault(err)
		logCallbackFailure(r.Context(), "xmlrpc_notification", http.StatusOK, faultCode(code), msg, refFrom(requestData, communicationData), err)
		writeXMLFault(w, code, msg)
		return
	}
	writeXMLReply(w, reply)
}

type notificationRequest struct {
	RequestData       map[string]any `json:"requestData"`
	CommunicationData map[string]any `json:"communicationData"`
}

func (h *Handler) jsonNotification(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	requestData, communicationData, err := decodeNotificationJSON(r.Body)
	if err != nil {
		observeCallback("", "malformed")
		writeMappedError(r.Context(), w, "json_notification", callbackRef{}, err)
		return
	}

	reply, err := h.handle(r.Context(), requestData, communicationData)
	if err != nil {
		writeMappedError(r.Context(), w, "json_notification", refFrom(requestData, communicationData), err)
		return
	}
	writeSuccess(w, http.StatusOK, reply.Map())
}

// handle runs one callback through the service and records its outcome.
func (h *Handler) handle(ctx context.Context, requestData, communicationData map[string]string) (domain.Reply, error) {
	method := requestData["method"]
	if h.service == nil {
		observeCallback(method, "disabled")
		return domain.Reply{}, domain.ErrModuleDisabled
	}

	reply, err := h.service.HandleNotification(ctx, requestData, communicationData)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		observeCallback(method, "malformed")
	case err != nil:
		observeCallback(method, "rejected")
	case reply.Success:
		observeCallback(method, "success")
	default:
		observeCallback(method, "failure")
	}
	return reply, err
}

func decodeNotificationJSON(r io.Reader) (map[string]string, map[string]string, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var req notificationRequest
	if err := dec.Decode(&req); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: request body must contain a single JSON value", domain.ErrInvalidInput)
	}
	requestData, err := flatten(req.RequestData)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: requestData: %v", domain.ErrInvalidInput, err)
	}
	communicationData, err := flatten(req.CommunicationData)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: communicationData: %v", domain.ErrInvalidInput, err)
	}
	return requestData, communicationData, nil
}

// flatten turns a JSON object of scalars into the string map the protocol signs over.
func flatten(in map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			out[k] = strconv.FormatBool(t)
		case nil:
			out[k] = ""
		default:
			return nil, fmt.Errorf("field %q is not a scalar", k)
		}
	}
	return out, nil
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, ref callbackRef, err error) {
	status, code, msg := mapDomainError(err)
	logCallbackFailure(ctx, operation, status, code, msg, ref, err)
	writeError(w, status, code, msg)
}

func faultCode(code int) string {
	return "FAULT_" + strconv.Itoa(code)
}

package bots

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/botx-relay/internal/botx"
)

// OutboundHandler serves the endpoints the authorization backend calls to
// push messages into a user's chat.
type OutboundHandler struct {
	notifier Notifier
	logger   zerolog.Logger
}

// NewOutboundHandler creates the backend-facing handler.
func NewOutboundHandler(notifier Notifier, logger zerolog.Logger) *OutboundHandler {
	return &OutboundHandler{
		notifier: notifier,
		logger:   logger.With().Str("component", "outbound").Logger(),
	}
}

// HandleSendAuthRequest handles POST /send-auth-request: a message with
// allow and deny buttons whose commands come back as callbacks.
func (h *OutboundHandler) HandleSendAuthRequest(w http.ResponseWriter, r *http.Request) {
	var req sendAuthRequest
	if !h.decode(w, r, &req) {
		return
	}
	if msg := missingFields(map[string]string{
		"chat_id":         req.ChatID,
		"auth_request_id": req.AuthRequestID,
		"message":         req.Message,
	}); msg != "" {
		h.badRequest(w, msg)
		return
	}
	// The id travels back inside the button command, which is split on
	// the first colon and trimmed.
	if strings.ContainsAny(req.AuthRequestID, ": \t\r\n") {
		h.badRequest(w, "auth_request_id must not contain ':' or whitespace")
		return
	}

	text := req.Message
	if req.ResourceName != "" {
		text += "\n\nResource: " + req.ResourceName
	}
	approve, reject := req.ApproveText, req.RejectText
	if approve == "" {
		approve = "✅ Allow"
	}
	if reject == "" {
		reject = "❌ Deny"
	}
	rows := [][]botx.Button{{
		{Command: req.AuthRequestID + ":allow", Label: approve, Silent: true},
		{Command: req.AuthRequestID + ":deny", Label: reject, Silent: true},
	}}

	err := h.notifier.SendWithButtons(r.Context(), req.ChatID, text, rows)
	h.finish(w, err, h.logger.With().
		Str("chat_id", req.ChatID).
		Str("user_id", req.UserID).
		Str("auth_request_id", req.AuthRequestID).
		Logger(), "authorization request sent")
}

// HandleSendAuthResult handles POST /send-auth-result.
func (h *OutboundHandler) HandleSendAuthResult(w http.ResponseWriter, r *http.Request) {
	var req sendAuthResult
	if !h.decode(w, r, &req) {
		return
	}
	if msg := missingFields(map[string]string{"chat_id": req.ChatID, "message": req.Message}); msg != "" {
		h.badRequest(w, msg)
		return
	}

	err := h.notifier.SendText(r.Context(), req.ChatID, req.Message)
	h.finish(w, err, h.logger.With().
		Str("chat_id", req.ChatID).
		Bool("success", req.Success).
		Logger(), "authorization result sent")
}

// HandleSend handles POST /send, a plain text message.
func (h *OutboundHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendText
	if !h.decode(w, r, &req) {
		return
	}
	if msg := missingFields(map[string]string{"chat_id": req.ChatID, "text": req.Text}); msg != "" {
		h.badRequest(w, msg)
		return
	}

	err := h.notifier.SendText(r.Context(), req.ChatID, req.Text)
	h.finish(w, err, h.logger.With().Str("chat_id", req.ChatID).Logger(), "message sent")
}

func (h *OutboundHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		h.badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func (h *OutboundHandler) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, outboundResponse{
		Error:     "validation_error",
		Message:   msg,
		Timestamp: timestamp(),
	})
}

// finish maps the send result onto the response. Every send failure is a
// failure of the platform call, hence 502.
func (h *OutboundHandler) finish(w http.ResponseWriter, err error, log zerolog.Logger, okMsg string) {
	if err != nil {
		log.Error().Err(err).Msg("outbound send failed")
		writeJSON(w, http.StatusBadGateway, outboundResponse{
			Error:     "send_failed",
			Message:   err.Error(),
			Timestamp: timestamp(),
		})
		return
	}
	log.Info().Msg(okMsg)
	writeJSON(w, http.StatusOK, outboundResponse{Success: true, Timestamp: timestamp()})
}

// missingFields names the empty required fields, in a stable order.
func missingFields(fields map[string]string) string {
	var missing []string
	for _, name := range []string{"chat_id", "auth_request_id", "message", "text"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", "))
}

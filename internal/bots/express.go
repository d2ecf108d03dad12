package bots

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/botx-relay/internal/auth"
	"github.com/ziadkadry99/botx-relay/internal/command"
	"github.com/ziadkadry99/botx-relay/internal/metrics"
	"github.com/ziadkadry99/botx-relay/internal/signature"
)

// WebhookConfig configures the platform-facing endpoints.
type WebhookConfig struct {
	BotID     string
	SecretKey string
	Commands  []CommandInfo
}

// WebhookHandler serves the endpoints the BotX platform calls.
type WebhookHandler struct {
	gateway *Gateway
	cfg     WebhookConfig
	logger  zerolog.Logger
}

// NewWebhookHandler creates the platform webhook handler.
func NewWebhookHandler(gateway *Gateway, cfg WebhookConfig, logger zerolog.Logger) *WebhookHandler {
	if cfg.Commands == nil {
		cfg.Commands = DefaultCommands
	}
	return &WebhookHandler{
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.With().Str("component", "webhook").Logger(),
	}
}

// HandleCommand handles POST /command. Apart from a token issued for a
// different bot, every outcome is acknowledged with 202 so the platform
// does not redeliver.
func (h *WebhookHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd command.InboundCommand
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		h.logger.Warn().Err(err).Msg("undecodable command body")
		accepted(w)
		return
	}

	log := h.logger.With().
		Str("sync_id", cmd.SyncID).
		Str("chat_id", cmd.From.GroupChatID).
		Str("user_huid", cmd.From.UserHUID).
		Logger()

	if id, ok := auth.IdentityFromContext(r.Context()); ok && !id.HasAudience(cmd.BotID) {
		metrics.AuthRejections.WithLabelValues("audience_mismatch").Inc()
		log.Warn().Str("bot_id", cmd.BotID).Strs("aud", id.Audience).Msg("command bot_id does not match token audience")
		auth.Unauthorized(w, "bot_id does not match token audience")
		return
	}
	if cmd.BotID != h.cfg.BotID {
		log.Warn().Str("bot_id", cmd.BotID).Msg("command addressed to another bot, ignoring")
		accepted(w)
		return
	}

	action, err := h.gateway.Process(r.Context(), &cmd)
	switch {
	case err != nil && action == nil:
		log.Warn().Err(err).Str("body", cmd.Command.Body).Msg("command not classified")
	case err != nil:
		log.Error().Err(err).Str("action", string(action.Kind())).Msg("command handling failed")
	default:
		log.Info().Str("action", string(action.Kind())).Msg("command handled")
	}
	accepted(w)
}

// HandleNotificationCallback handles POST /notification/callback, the
// platform's delivery report for a message the bot sent.
func (h *WebhookHandler) HandleNotificationCallback(w http.ResponseWriter, r *http.Request) {
	var cb notificationCallback
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&cb); err != nil {
		h.logger.Warn().Err(err).Msg("undecodable notification callback")
		accepted(w)
		return
	}

	status := strings.ToLower(cb.Status)
	switch status {
	case "ok":
		h.logger.Info().Str("sync_id", cb.SyncID).Msg("notification delivered")
	case "error":
		h.logger.Error().
			Str("sync_id", cb.SyncID).
			Str("reason", cb.Reason).
			Interface("errors", cb.Errors).
			Interface("error_data", cb.ErrorData).
			Msg("notification delivery failed")
	default:
		status = "unknown"
		h.logger.Warn().Str("sync_id", cb.SyncID).Str("status", cb.Status).Msg("notification callback with unknown status")
	}
	metrics.NotificationCallbacks.WithLabelValues(status).Inc()
	accepted(w)
}

// HandleStatus handles GET /status, which the platform polls for the
// bot's command menu.
func (h *WebhookHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status: "ok",
		Result: statusResult{
			Enabled:  true,
			Commands: h.cfg.Commands,
		},
	})
}

// HandleVerify handles POST /verify: checks that signature is the bot
// signature of bot_id under the configured secret.
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, validationError{
			Reason:    "validation_error",
			ErrorData: map[string]string{"body": "invalid JSON"},
			Errors:    []string{"request body must be a JSON object"},
		})
		return
	}

	missing := map[string]string{}
	var errs []string
	if req.BotID == "" {
		missing["bot_id"] = "required"
		errs = append(errs, "bot_id is required")
	}
	if req.Signature == "" {
		missing["signature"] = "required"
		errs = append(errs, "signature is required")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationError{Reason: "validation_error", ErrorData: missing, Errors: errs})
		return
	}

	if req.BotID != h.cfg.BotID || !signature.Verify(req.BotID, h.cfg.SecretKey, req.Signature) {
		metrics.AuthRejections.WithLabelValues("signature").Inc()
		h.logger.Warn().Str("bot_id", req.BotID).Msg("signature verification failed")
		writeJSON(w, http.StatusUnauthorized, verifyResponse{Status: "failed", BotID: req.BotID, Verified: false})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Status: "ok", BotID: req.BotID, Verified: true})
}

// acknowledgeOnPanic turns a panic in a webhook handler into the usual
// 202 acknowledgment.
func acknowledgeOnPanic(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("recovered panic in webhook handler")
				accepted(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

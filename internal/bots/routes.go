package bots

import (
	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/botx-relay/internal/auth"
)

// RegisterRoutes mounts the webhook and outbound endpoints under basePath.
// The gate runs in front of every route and only enforces its protected
// paths. apiKey guards the outbound endpoints when non-empty.
func RegisterRoutes(r chi.Router, basePath string, gate *auth.Gate, apiKey string, webhooks *WebhookHandler, outbound *OutboundHandler) {
	r.Route(basePath, func(r chi.Router) {
		r.Use(gate.Middleware)

		// Platform webhooks
		r.Group(func(r chi.Router) {
			r.Use(acknowledgeOnPanic(webhooks.logger))
			r.Post("/command", webhooks.HandleCommand)
			r.Post("/notification/callback", webhooks.HandleNotificationCallback)
		})
		r.Get("/status", webhooks.HandleStatus)
		r.Post("/verify", webhooks.HandleVerify)

		// Backend -> chat
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAPIKey(apiKey))
			r.Post("/send-auth-request", outbound.HandleSendAuthRequest)
			r.Post("/send-auth-result", outbound.HandleSendAuthResult)
			r.Post("/send", outbound.HandleSend)
		})
	})
}

package bots

import (
	"encoding/json"
	"net/http"
	"time"
)

// maxBodyBytes caps inbound JSON bodies.
const maxBodyBytes = 1 << 20

// CommandInfo describes a bot command advertised on the status endpoint.
type CommandInfo struct {
	Name        string `json:"name"`
	Body        string `json:"body"`
	Description string `json:"description"`
}

// DefaultCommands are the commands the relay advertises to the platform.
var DefaultCommands = []CommandInfo{
	{Name: "/start", Body: "/start", Description: "Start the authorization dialog"},
}

type statusResponse struct {
	Status string       `json:"status"`
	Result statusResult `json:"result"`
}

type statusResult struct {
	Enabled       bool          `json:"enabled"`
	StatusMessage string        `json:"status_message"`
	Commands      []CommandInfo `json:"commands"`
}

// notificationCallback is what the platform posts after delivering (or
// failing to deliver) a notification the bot sent.
type notificationCallback struct {
	SyncID    string         `json:"sync_id"`
	Status    string         `json:"status"`
	Result    map[string]any `json:"result,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Errors    []any          `json:"errors,omitempty"`
	ErrorData map[string]any `json:"error_data,omitempty"`
}

type verifyRequest struct {
	BotID     string `json:"bot_id"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Status   string `json:"status"`
	BotID    string `json:"bot_id"`
	Verified bool   `json:"verified"`
}

type validationError struct {
	Reason    string            `json:"reason"`
	ErrorData map[string]string `json:"error_data"`
	Errors    []string          `json:"errors"`
}

type sendAuthRequest struct {
	ChatID        string `json:"chat_id"`
	UserID        string `json:"user_id"`
	AuthRequestID string `json:"auth_request_id"`
	Message       string `json:"message"`
	ResourceName  string `json:"resource_name,omitempty"`
	ApproveText   string `json:"approve_text,omitempty"`
	RejectText    string `json:"reject_text,omitempty"`
}

type sendAuthResult struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type sendText struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type outboundResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

var acceptedBody = []byte(`{"result":"accepted"}` + "\n")

// accepted writes the acknowledgment every webhook call ends with.
func accepted(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write(acceptedBody)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Package command holds the inbound BotX command model and the classifier
// that turns a raw command into a typed action.
package command

import (
	"fmt"
	"strings"
)

// CommandType is the command_type of an inbound command.
type CommandType string

const (
	TypeUser   CommandType = "user"
	TypeSystem CommandType = "system"
	TypeOther  CommandType = "other"
)

// Normalize maps the wire value onto one of the known types.
func (t CommandType) Normalize() CommandType {
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "user":
		return TypeUser
	case "system":
		return TypeSystem
	default:
		return TypeOther
	}
}

// InboundCommand is the body BotX posts to the command endpoint.
type InboundCommand struct {
	SyncID       string  `json:"sync_id"`
	SourceSyncID string  `json:"source_sync_id,omitempty"`
	Command      Payload `json:"command"`
	From         Sender  `json:"from"`
	BotID        string  `json:"bot_id"`
	ProtoVersion int     `json:"proto_version"`
}

// Payload is the command part of an InboundCommand.
type Payload struct {
	Body        string         `json:"body"`
	CommandType CommandType    `json:"command_type"`
	Data        map[string]any `json:"data,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Sender describes who sent the command and from which chat.
type Sender struct {
	UserHUID    string `json:"user_huid"`
	GroupChatID string `json:"group_chat_id"`
	ChatType    string `json:"chat_type"`
	Username    string `json:"username"`
	ADLogin     string `json:"ad_login"`
	ADDomain    string `json:"ad_domain"`
	Device      string `json:"device"`
	Platform    string `json:"platform"`
	AppVersion  string `json:"app_version"`
	Locale      string `json:"locale"`
	Host        string `json:"host"`
}

// DataString returns the structured data value under key as a string.
// Non-string values are formatted; missing and null values report false.
func (p Payload) DataString(key string) (string, bool) {
	v, ok := p.Data[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Kind names an action for dispatch and metrics.
type Kind string

const (
	KindStart       Kind = "start"
	KindCallback    Kind = "callback"
	KindMessage     Kind = "message"
	KindChatCreated Kind = "chat_created"
	KindIgnored     Kind = "ignored"
)

// Action is the result of classifying a command.
type Action interface {
	Kind() Kind
}

// StartAction is a /start command carrying the authorization request id
// the chat was opened for.
type StartAction struct {
	RequestID string
}

// CallbackAction is a button press answering an authorization request.
type CallbackAction struct {
	AuthRequestID string
	Decision      Decision
	// Raw is the callback string as received, e.g. "abc:Allow".
	Raw string
}

// MessageAction is any other user text.
type MessageAction struct {
	Text      string
	FirstName string
	LastName  string
}

// ChatCreatedAction is the system event sent when the bot joins a chat.
type ChatCreatedAction struct{}

// IgnoredAction is a command the relay has nothing to do with.
type IgnoredAction struct {
	Reason string
}

func (StartAction) Kind() Kind       { return KindStart }
func (CallbackAction) Kind() Kind    { return KindCallback }
func (MessageAction) Kind() Kind     { return KindMessage }
func (ChatCreatedAction) Kind() Kind { return KindChatCreated }
func (IgnoredAction) Kind() Kind     { return KindIgnored }

// Decision is the user's answer to an authorization request.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// ParseDecision parses a decision, ignoring case and surrounding space.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionAllow:
		return DecisionAllow, true
	case DecisionDeny:
		return DecisionDeny, true
	}
	return "", false
}

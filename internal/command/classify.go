package command

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMissingRequestID is returned for a start command whose data
	// carries no /req=<id> marker.
	ErrMissingRequestID = errors.New("start command without request id")
	// ErrMalformedCallback is returned when a callback is not "<id>:<decision>".
	ErrMalformedCallback = errors.New("malformed callback")
	// ErrUnknownDecision is returned when the decision part is not allow or deny.
	ErrUnknownDecision = errors.New("unknown callback decision")
)

// chatCreatedBody is the body of the system command sent on chat creation.
const chatCreatedBody = "system:chat_created"

const callbackPrefix = "callback:"

var requestIDPattern = regexp.MustCompile(`/req=(\S+)`)

// requestIDKeys are the data keys searched for a request id, in order.
var requestIDKeys = []string{"command", "payload"}

// callbackKeys are the data keys that carry a button callback, in order.
var callbackKeys = []string{"callback_data", "button_data"}

// Classify maps an inbound command to an action. It never panics; input it
// cannot make sense of yields an error wrapping one of the Err* values.
func Classify(cmd *InboundCommand) (Action, error) {
	if cmd == nil {
		return IgnoredAction{Reason: "empty command"}, nil
	}
	p := cmd.Command

	switch p.CommandType.Normalize() {
	case TypeSystem:
		if strings.EqualFold(strings.TrimSpace(p.Body), chatCreatedBody) {
			return ChatCreatedAction{}, nil
		}
		return IgnoredAction{Reason: "unhandled system command " + p.Body}, nil
	case TypeOther:
		return IgnoredAction{Reason: "unhandled command type " + string(p.CommandType)}, nil
	}

	if isStart(p.Body) {
		id, ok := findRequestID(p)
		if !ok {
			return nil, ErrMissingRequestID
		}
		return StartAction{RequestID: id}, nil
	}

	if raw, ok := callbackString(p); ok {
		return parseCallback(raw)
	}

	msg := MessageAction{Text: p.Body}
	msg.FirstName, _ = p.DataString("first_name")
	msg.LastName, _ = p.DataString("last_name")
	return msg, nil
}

func isStart(body string) bool {
	b := strings.TrimSpace(body)
	return strings.EqualFold(b, "/start") || strings.EqualFold(b, "start")
}

func findRequestID(p Payload) (string, bool) {
	for _, key := range requestIDKeys {
		s, ok := p.DataString(key)
		if !ok {
			continue
		}
		if m := requestIDPattern.FindStringSubmatch(s); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// callbackString finds the callback payload of a command, if it has one.
// Besides the dedicated data keys and the "callback:" prefix, a bare body
// with exactly one colon and two non-empty parts is treated as a callback,
// so it classifies the same way it would under callback_data.
func callbackString(p Payload) (string, bool) {
	for _, key := range callbackKeys {
		if s, ok := p.DataString(key); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}

	body := strings.TrimSpace(p.Body)
	if len(body) >= len(callbackPrefix) && strings.EqualFold(body[:len(callbackPrefix)], callbackPrefix) {
		return body[len(callbackPrefix):], true
	}

	if strings.Count(body, ":") != 1 {
		return "", false
	}
	id, decision, _ := strings.Cut(body, ":")
	if id == "" || decision == "" {
		return "", false
	}
	return body, true
}

func parseCallback(raw string) (Action, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedCallback, raw)
	}
	id := strings.TrimSpace(parts[0])
	if id == "" {
		return nil, fmt.Errorf("%w: empty request id in %q", ErrMalformedCallback, raw)
	}
	decision, ok := ParseDecision(parts[1])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDecision, parts[1])
	}
	return CallbackAction{AuthRequestID: id, Decision: decision, Raw: raw}, nil
}

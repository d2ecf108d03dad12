package bots

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/botx-relay/internal/botx"
	"github.com/ziadkadry99/botx-relay/internal/command"
	"github.com/ziadkadry99/botx-relay/internal/relay"
)

// Notifier pushes messages into platform chats. *botx.Client implements it.
type Notifier interface {
	SendText(ctx context.Context, chatID, text string) error
	SendWithButtons(ctx context.Context, chatID, text string, rows [][]botx.Button) error
}

// Relay forwards events to the authorization backend. *relay.Client
// implements it.
type Relay interface {
	ChatCreated(ctx context.Context, ev relay.ChatCreatedEvent) error
	AuthCallback(ctx context.Context, ev relay.AuthCallbackEvent) error
	Message(ctx context.Context, ev relay.MessageEvent) error
	MessagesEnabled() bool
}

// Texts are the messages the bot writes into chats on its own.
type Texts struct {
	Welcome     string
	StartButton string
	Allowed     string
	Denied      string
}

// DefaultTexts are used when a Processor is created without overrides.
var DefaultTexts = Texts{
	Welcome:     "Hello! I deliver authorization requests. Press the button below to get started.",
	StartButton: "🚀 Start",
	Allowed:     "✅ Access allowed.",
	Denied:      "❌ Access denied.",
}

// Processor implements the relay's behaviour for each action kind.
type Processor struct {
	botID    string
	notifier Notifier
	relay    Relay
	texts    Texts
	logger   zerolog.Logger
}

// NewProcessor creates a processor for the given bot.
func NewProcessor(botID string, notifier Notifier, backend Relay, logger zerolog.Logger) *Processor {
	return &Processor{
		botID:    botID,
		notifier: notifier,
		relay:    backend,
		texts:    DefaultTexts,
		logger:   logger.With().Str("component", "processor").Logger(),
	}
}

// WithTexts overrides the chat texts.
func (p *Processor) WithTexts(t Texts) *Processor {
	p.texts = t
	return p
}

// Register installs the processor's handlers on g.
func (p *Processor) Register(g *Gateway) {
	g.HandleFunc(command.KindStart, p.handleStart)
	g.HandleFunc(command.KindCallback, p.handleCallback)
	g.HandleFunc(command.KindMessage, p.handleMessage)
	g.HandleFunc(command.KindChatCreated, p.handleChatCreated)
}

func (p *Processor) handleStart(ctx context.Context, cmd *command.InboundCommand, action command.Action) error {
	start, ok := action.(command.StartAction)
	if !ok {
		return fmt.Errorf("start handler got %T", action)
	}
	return p.relay.ChatCreated(ctx, relay.ChatCreatedEvent{
		BotID:         p.botID,
		ChatID:        cmd.From.GroupChatID,
		RequestID:     start.RequestID,
		ExpressUserID: cmd.From.UserHUID,
		Username:      cmd.From.Username,
		Device:        cmd.From.Device,
		LanguageCode:  cmd.From.Locale,
	})
}

func (p *Processor) handleCallback(ctx context.Context, cmd *command.InboundCommand, action command.Action) error {
	cb, ok := action.(command.CallbackAction)
	if !ok {
		return fmt.Errorf("callback handler got %T", action)
	}
	err := p.relay.AuthCallback(ctx, relay.AuthCallbackEvent{
		CallbackData:  cb.Raw,
		AuthRequestID: cb.AuthRequestID,
		Decision:      string(cb.Decision),
		ChatID:        cmd.From.GroupChatID,
		ExpressUserID: cmd.From.UserHUID,
	})
	if err != nil {
		return err
	}

	text := p.texts.Denied
	if cb.Decision == command.DecisionAllow {
		text = p.texts.Allowed
	}
	if err := p.notifier.SendText(ctx, cmd.From.GroupChatID, text); err != nil {
		return fmt.Errorf("sending decision confirmation: %w", err)
	}
	return nil
}

func (p *Processor) handleMessage(ctx context.Context, cmd *command.InboundCommand, action command.Action) error {
	msg, ok := action.(command.MessageAction)
	if !ok {
		return fmt.Errorf("message handler got %T", action)
	}
	if !p.relay.MessagesEnabled() {
		p.logger.Debug().Str("sync_id", cmd.SyncID).Msg("message relay disabled, dropping text")
		return nil
	}
	return p.relay.Message(ctx, relay.MessageEvent{
		BotID:         p.botID,
		ChatID:        cmd.From.GroupChatID,
		SyncID:        cmd.SyncID,
		ExpressUserID: cmd.From.UserHUID,
		Username:      cmd.From.Username,
		FirstName:     msg.FirstName,
		LastName:      msg.LastName,
		Text:          msg.Text,
	})
}

func (p *Processor) handleChatCreated(ctx context.Context, cmd *command.InboundCommand, _ command.Action) error {
	rows := [][]botx.Button{{
		{Command: "/start", Label: p.texts.StartButton, Silent: true},
	}}
	return p.notifier.SendWithButtons(ctx, cmd.From.GroupChatID, p.texts.Welcome, rows)
}

package bots

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/botx-relay/internal/command"
	"github.com/ziadkadry99/botx-relay/internal/metrics"
)

// ErrHandlerPanic is returned when an action handler panics.
var ErrHandlerPanic = errors.New("action handler panicked")

// ActionHandler processes one classified command.
type ActionHandler interface {
	HandleAction(ctx context.Context, cmd *command.InboundCommand, action command.Action) error
}

// ActionHandlerFunc adapts a function to ActionHandler.
type ActionHandlerFunc func(ctx context.Context, cmd *command.InboundCommand, action command.Action) error

func (f ActionHandlerFunc) HandleAction(ctx context.Context, cmd *command.InboundCommand, action command.Action) error {
	return f(ctx, cmd, action)
}

// Gateway classifies inbound commands and routes each action kind to the
// handler registered for it.
type Gateway struct {
	handlers map[command.Kind]ActionHandler
	logger   zerolog.Logger
}

// NewGateway creates a Gateway with no handlers.
func NewGateway(logger zerolog.Logger) *Gateway {
	return &Gateway{
		handlers: make(map[command.Kind]ActionHandler),
		logger:   logger.With().Str("component", "gateway").Logger(),
	}
}

// Handle registers h for actions of the given kind, replacing any
// previous handler.
func (g *Gateway) Handle(kind command.Kind, h ActionHandler) {
	g.handlers[kind] = h
}

// HandleFunc registers a function for actions of the given kind.
func (g *Gateway) HandleFunc(kind command.Kind, f func(ctx context.Context, cmd *command.InboundCommand, action command.Action) error) {
	g.Handle(kind, ActionHandlerFunc(f))
}

// Process classifies cmd and runs the matching handler. The classified
// action is returned even when the handler fails. Kinds without a handler
// are dropped.
func (g *Gateway) Process(ctx context.Context, cmd *command.InboundCommand) (command.Action, error) {
	action, err := command.Classify(cmd)
	if err != nil {
		metrics.CommandsClassified.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("classifying command: %w", err)
	}
	metrics.CommandsClassified.WithLabelValues(string(action.Kind())).Inc()

	h, ok := g.handlers[action.Kind()]
	if !ok {
		g.logger.Debug().Str("action", string(action.Kind())).Msg("no handler registered, dropping command")
		return action, nil
	}
	return action, g.run(ctx, h, cmd, action)
}

func (g *Gateway) run(ctx context.Context, h ActionHandler, cmd *command.InboundCommand, action command.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h.HandleAction(ctx, cmd, action)
}

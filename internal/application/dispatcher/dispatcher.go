// Package dispatcher turns raw participant messages into orchestrator
// intents and is the recovery boundary for everything a message triggers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quiz-hub/quiz-hub/internal/application/orchestrator"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
)

// Target is the session a message is addressed to.
type Target interface {
	ID() uuid.UUID
	Apply(ctx context.Context, in orchestrator.Intent) error
}

type Dispatcher struct {
	incidents orchestrator.IncidentSink
	logger    zerolog.Logger
}

func New(incidents orchestrator.IncidentSink, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		incidents: incidents,
		logger:    logger.With().Str("service", "dispatcher").Logger(),
	}
}

// Dispatch parses m and applies it to target. Protocol violations are
// returned to the caller and otherwise ignored; a panic is recovered,
// reported with the message text and returned as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, m Message) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = fmt.Errorf("dispatch %q: panic: %v", m.String(), r)
		d.logger.Error().Err(err).Str("session", target.ID().String()).Msg("recovered panic")
		if d.incidents != nil {
			d.incidents.Report(target.ID(), err, m.String(), nil)
		}
	}()

	in, err := Parse(m)
	if err != nil {
		d.logger.Debug().Err(err).Str("sender", m.Sender).Msg("malformed message dropped")
		return err
	}

	err = target.Apply(ctx, in)
	var pv *game.ProtocolViolation
	switch {
	case err == nil:
	case errors.As(err, &pv):
		d.logger.Debug().Err(err).Str("sender", m.Sender).Msg("message rejected")
	default:
		d.logger.Warn().Err(err).Str("session", target.ID().String()).Str("verb", m.Verb).Msg("message failed")
	}
	return err
}

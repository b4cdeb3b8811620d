package notify

import (
	"context"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/rs/zerolog"
)

// Sink receives action lifecycle events. Delivery is at-least-once; a
// consumer must dedupe by (ActionID, Type).
type Sink interface {
	Publish(ctx context.Context, event domain.Event) error
}

// LogSink writes events to the context logger. It is the default sink.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Publish(ctx context.Context, event domain.Event) error {
	zerolog.Ctx(ctx).Info().
		Str("event", string(event.Type)).
		Str("action_id", event.ActionID).
		Str("workspace", event.WorkspaceName).
		Str("action_type", string(event.ActionType)).
		Msg(event.Message)
	return nil
}

// EventRecorder persists events for the dashboard activity feed.
type EventRecorder interface {
	AppendEvent(ctx context.Context, event domain.Event) error
}

// RecorderSink adapts an EventRecorder to the Sink interface.
type RecorderSink struct {
	recorder EventRecorder
}

func NewRecorderSink(recorder EventRecorder) *RecorderSink {
	return &RecorderSink{recorder: recorder}
}

func (s *RecorderSink) Publish(ctx context.Context, event domain.Event) error {
	return s.recorder.AppendEvent(ctx, event)
}

// MultiSink fans an event out to every sink. Publish failures are logged
// and do not short-circuit the remaining sinks; the event stays
// at-least-once for the sinks that accepted it.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Publish(ctx context.Context, event domain.Event) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			zerolog.Ctx(ctx).Error().
				Err(err).
				Str("event", string(event.Type)).
				Str("action_id", event.ActionID).
				Msg("event sink publish failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

package kafka

import (
	"context"
	"time"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// RunCompletedPayload is the body of a run.completed event.
type RunCompletedPayload struct {
	RunID        string          `json:"run_id"`
	Status       string          `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	ProtocolPath string          `json:"protocol_path"`
	Wells        int             `json:"wells"`
	Missing      int             `json:"missing"`
	Products     library.Summary `json:"products"`
	Artifacts    []string        `json:"artifacts,omitempty"`
}

// Publisher is what RunEventPublisher needs from a producer.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// RunEventPublisher announces finished runs, keyed by run id so all events
// of one run land on the same partition.
type RunEventPublisher struct {
	producer Publisher
	topic    string
	source   string
	logger   logging.Logger
}

func NewRunEventPublisher(producer Publisher, topic, source string, logger logging.Logger) *RunEventPublisher {
	if topic == "" {
		topic = TopicRunCompleted
	}
	if source == "" {
		source = "platemap"
	}
	return &RunEventPublisher{producer: producer, topic: topic, source: source, logger: logging.OrNop(logger)}
}

func (p *RunEventPublisher) PublishRunCompleted(ctx context.Context, run *platemap.Run) error {
	if run == nil || run.ID == "" {
		return errors.InvalidParam("run with id is required")
	}
	env, err := NewEventEnvelope(EventRunCompleted, p.source, RunCompletedPayload{
		RunID:        run.ID,
		Status:       string(run.Status),
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		ProtocolPath: run.ProtocolPath,
		Wells:        run.Wells,
		Missing:      run.Missing,
		Products:     run.Summary,
		Artifacts:    run.Artifacts,
	})
	if err != nil {
		return err
	}
	env.Metadata = map[string]string{"status": string(run.Status)}

	msg, err := env.ToMessage(p.topic, run.ID)
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}
	p.logger.Info("Run event published",
		logging.String("run_id", run.ID),
		logging.String("topic", p.topic),
		logging.String("event_id", env.EventID))
	return nil
}

//Personal.AI order the ending

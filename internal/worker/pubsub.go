package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	job              *ReoptimizeJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Job              *ReoptimizeJob
	Logger           zerolog.Logger
}

// JobMessage represents a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// RouteID targets a single route for route_reoptimize jobs.
	RouteID string `json:"route_id,omitempty"`

	// Date selects the sweep day for daily_sweep jobs, formatted
	// YYYY-MM-DD. Empty means today.
	Date string `json:"date,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		job:              cfg.Job,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Data, &jobMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch jobMsg.JobType {
	case "route_reoptimize":
		err = h.handleReoptimize(ctx, jobMsg)
	case "daily_sweep":
		err = h.handleDailySweep(ctx, jobMsg)
	default:
		logger.Warn().Str("job_type", jobMsg.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", jobMsg.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleReoptimize(ctx context.Context, msg JobMessage) error {
	if msg.RouteID == "" {
		// Nothing to retry against; treat as handled.
		h.logger.Warn().Msg("route_reoptimize message without route_id")
		return nil
	}

	h.logger.Info().
		Str("route_id", msg.RouteID).
		Msg("re-optimizing route")

	degraded, err := h.job.ReoptimizeRoute(ctx, msg.RouteID)
	if err != nil {
		return err
	}
	if degraded {
		// The oracle is still down; redelivery gives it another chance.
		return fmt.Errorf("route %s re-optimized in degraded mode", msg.RouteID)
	}
	return nil
}

func (h *PubSubHandler) handleDailySweep(ctx context.Context, msg JobMessage) error {
	date := time.Now().UTC()
	if msg.Date != "" {
		parsed, err := time.Parse("2006-01-02", msg.Date)
		if err != nil {
			// A malformed date never becomes valid on redelivery.
			h.logger.Warn().Str("date", msg.Date).Msg("invalid sweep date, skipping")
			return nil
		}
		date = parsed
	}

	result, err := h.job.RunSweep(ctx, date)
	if err != nil {
		return err
	}

	// Tolerate partial failure; only a mostly-failed sweep is retried.
	if result.Failed > result.Optimized+result.Degraded {
		return fmt.Errorf("too many sweep failures: %d/%d", result.Failed, result.TotalRoutes)
	}
	return nil
}

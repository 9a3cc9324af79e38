// Package notify delivers new-application webhook notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kiranms1996/job-management/internal/domain"
	"github.com/kiranms1996/job-management/internal/metrics"
)

var defaultBackoff = []time.Duration{
	0,
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
}

const maxAttempts = 4

// DrainTimeout is the maximum time to wait for buffered events during shutdown.
const DrainTimeout = 30 * time.Second

type Store interface {
	GetListingByPostID(ctx context.Context, postID int64) (domain.Listing, error)
}

type WebhookSender interface {
	Send(ctx context.Context, req WebhookRequest) WebhookResult
}

// Breaker gates deliveries per endpoint. Optional.
type Breaker interface {
	Allow(url string) error
	RecordSuccess(url string)
	RecordFailure(url string)
}

// MetricsSink records notifier metrics. All methods must be non-blocking.
type MetricsSink interface {
	NotifyAttemptCompleted(attempt int, statusClass string, duration time.Duration)
	NotifyOutcome(outcome string)
	EventsInFlightIncr()
	EventsInFlightDecr()
}

type WebhookRequest struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	Payload    WebhookPayload
	DeliveryID string
}

type WebhookPayload struct {
	EventID       string `json:"event_id"`
	ApplicationID int64  `json:"application_id"`
	JobID         int64  `json:"job_id"`
	PositionTitle string `json:"position_title,omitempty"`
	ReceivedAt    string `json:"received_at"`
}

type WebhookResult struct {
	StatusCode int
	Error      error
	Duration   time.Duration
}

func (r WebhookResult) IsSuccess() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

func (r WebhookResult) IsRetryable() bool {
	if r.Error != nil {
		return true
	}
	if r.StatusCode == 429 {
		return true
	}
	return r.StatusCode >= 500
}

// Config holds the delivery target of a Notifier.
type Config struct {
	WebhookURL string
	Secret     string
	Timeout    time.Duration
}

type Notifier struct {
	cfg          Config
	store        Store
	sender       WebhookSender
	breaker      Breaker     // optional, nil = disabled
	metrics      MetricsSink // optional, nil = disabled
	backoff      []time.Duration
	drainTimeout time.Duration
}

func New(cfg Config, store Store, sender WebhookSender) *Notifier {
	return &Notifier{
		cfg:          cfg,
		store:        store,
		sender:       sender,
		backoff:      defaultBackoff,
		drainTimeout: DrainTimeout,
	}
}

func (n *Notifier) WithBreaker(b Breaker) *Notifier {
	n.breaker = b
	return n
}

// WithMetrics attaches a metrics sink to the notifier.
func (n *Notifier) WithMetrics(sink MetricsSink) *Notifier {
	n.metrics = sink
	return n
}

func (n *Notifier) WithDrainTimeout(d time.Duration) *Notifier {
	if d > 0 {
		n.drainTimeout = d
	}
	return n
}

// Run processes events from the channel until context is cancelled.
// After cancellation, it drains remaining buffered events with a timeout.
func (n *Notifier) Run(ctx context.Context, ch <-chan domain.ApplicationReceived) {
	for {
		select {
		case <-ctx.Done():
			n.drain(ch)
			return
		case event := <-ch:
			if err := n.Deliver(ctx, event); err != nil {
				log.Printf("notifier: error: %v", err)
			}
		}
	}
}

// drain processes remaining events in the channel buffer after shutdown signal.
// Uses a background context since the main context is already cancelled.
func (n *Notifier) drain(ch <-chan domain.ApplicationReceived) {
	drainCtx, cancel := context.WithTimeout(context.Background(), n.drainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			if count > 0 {
				log.Printf("notifier: drain timeout, processed %d events", count)
			}
			return
		case event, ok := <-ch:
			if !ok {
				log.Printf("notifier: drain complete, processed %d events", count)
				return
			}
			if err := n.Deliver(drainCtx, event); err != nil {
				log.Printf("notifier: drain error: %v", err)
			}
			count++
		default:
			if count > 0 {
				log.Printf("notifier: drain complete, processed %d events", count)
			}
			return
		}
	}
}

// Deliver sends one notification with bounded retries. A listing that has
// disappeared since submission does not block the notification; the title is
// simply omitted.
func (n *Notifier) Deliver(ctx context.Context, event domain.ApplicationReceived) error {
	if n.metrics != nil {
		n.metrics.EventsInFlightIncr()
		defer n.metrics.EventsInFlightDecr()
	}

	if n.cfg.WebhookURL == "" {
		return fmt.Errorf("application %d: no webhook URL", event.ApplicationID)
	}

	var title string
	listing, err := n.store.GetListingByPostID(ctx, event.JobID)
	switch {
	case err == nil:
		title = listing.PositionTitle
	case errors.Is(err, domain.ErrListingNotFound):
	default:
		log.Printf("notifier: lookup listing job=%d: %v", event.JobID, err)
	}

	req := WebhookRequest{
		URL:     n.cfg.WebhookURL,
		Secret:  n.cfg.Secret,
		Timeout: n.cfg.Timeout,
		Payload: WebhookPayload{
			EventID:       event.EventID.String(),
			ApplicationID: event.ApplicationID,
			JobID:         event.JobID,
			PositionTitle: title,
			ReceivedAt:    event.ReceivedAt.UTC().Format(time.RFC3339),
		},
	}

	var lastResult WebhookResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			idx := attempt - 1
			if idx >= len(n.backoff) {
				idx = len(n.backoff) - 1
			}
			backoff := n.backoff[idx]

			log.Printf("notifier: event=%s attempt=%d backoff=%s", event.EventID, attempt, backoff)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				return ctx.Err()
			case <-timer.C:
			}
		}

		if n.breaker != nil {
			if err := n.breaker.Allow(req.URL); err != nil {
				lastResult = WebhookResult{Error: err}
				log.Printf("notifier: event=%s attempt=%d skipped: %v", event.EventID, attempt, err)
				continue
			}
		}

		req.DeliveryID = uuid.New().String()

		result := n.sender.Send(ctx, req)
		lastResult = result

		if n.metrics != nil {
			statusClass := metrics.ClassifyStatus(result.StatusCode, result.Error)
			n.metrics.NotifyAttemptCompleted(attempt, statusClass, result.Duration)
		}

		if result.IsSuccess() {
			if n.breaker != nil {
				n.breaker.RecordSuccess(req.URL)
			}
			log.Printf("notifier: event=%s delivered attempt=%d", event.EventID, attempt)
			if n.metrics != nil {
				n.metrics.NotifyOutcome(metrics.OutcomeSuccess)
			}
			return nil
		}

		if n.breaker != nil {
			n.breaker.RecordFailure(req.URL)
		}

		if !result.IsRetryable() {
			log.Printf("notifier: event=%s non-retryable status=%d", event.EventID, result.StatusCode)
			if n.metrics != nil {
				n.metrics.NotifyOutcome(metrics.OutcomeAbandoned)
			}
			return fmt.Errorf("event %s: abandoned with status %d", event.EventID, result.StatusCode)
		}

		log.Printf("notifier: event=%s attempt=%d failed status=%d err=%v", event.EventID, attempt, result.StatusCode, result.Error)
	}

	log.Printf("notifier: event=%s failed status=%d err=%v", event.EventID, lastResult.StatusCode, lastResult.Error)
	if n.metrics != nil {
		n.metrics.NotifyOutcome(metrics.OutcomeFailed)
	}
	return fmt.Errorf("event %s: delivery failed after %d attempts", event.EventID, maxAttempts)
}

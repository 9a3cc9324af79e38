package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

var _ Sink = (*NoopSink)(nil)

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) RequestCompleted(route string, statusCode int, d time.Duration)       {}
func (n *NoopSink) ApplicationOutcome(outcome string)                                    {}
func (n *NoopSink) ResumeUploadRejected(reason string)                                   {}
func (n *NoopSink) ListingUpserted()                                                     {}
func (n *NoopSink) ApplicationsDeleted(count int)                                        {}
func (n *NoopSink) SweepCompleted(duration time.Duration, removed int64, err error)      {}
func (n *NoopSink) NotifyAttemptCompleted(attempt int, statusClass string, d time.Duration) {}
func (n *NoopSink) NotifyOutcome(outcome string)                                         {}
func (n *NoopSink) EventsInFlightIncr()                                                  {}
func (n *NoopSink) EventsInFlightDecr()                                                  {}
func (n *NoopSink) BufferSizeUpdate(size int)                                            {}
func (n *NoopSink) BufferCapacitySet(capacity int)                                       {}
func (n *NoopSink) EmitError()                                                           {}

// Package circuitbreaker stops webhook delivery to endpoints that keep
// failing, giving them a cooldown before the next probe.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type endpointState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
}

// CircuitBreaker tracks failure state per endpoint URL. After threshold
// consecutive failures the endpoint is blocked until cooldown elapses,
// then a single probe request is allowed through.
type CircuitBreaker struct {
	mu        sync.Mutex
	endpoints map[string]*endpointState
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func New(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		endpoints: make(map[string]*endpointState),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a request to url may proceed.
func (cb *CircuitBreaker) Allow(url string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.endpoints[url]
	if !ok {
		return nil
	}

	switch s.state {
	case stateOpen:
		if cb.now().Sub(s.openedAt) >= cb.cooldown {
			s.state = stateHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case stateHalfOpen:
		// A probe is already in flight.
		return ErrCircuitOpen
	default:
		return nil
	}
}

// RecordSuccess closes the circuit for url.
func (cb *CircuitBreaker) RecordSuccess(url string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.endpoints[url]
	if !ok {
		return
	}
	s.state = stateClosed
	s.consecutiveFailures = 0
}

// RecordFailure counts a failure for url, opening the circuit at threshold.
func (cb *CircuitBreaker) RecordFailure(url string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.endpoints[url]
	if !ok {
		s = &endpointState{}
		cb.endpoints[url] = s
	}

	s.consecutiveFailures++
	if s.consecutiveFailures >= cb.threshold {
		s.state = stateOpen
		s.openedAt = cb.now()
	}
}

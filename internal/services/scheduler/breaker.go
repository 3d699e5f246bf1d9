package scheduler

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker position for one agent.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// String returns the string representation of the breakerState
func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// circuitBreaker guards one agent against repeated transport failures.
// Consecutive network-class failures (network_error, timed_out) trip it
// open; structural failures and upstream throttling never do, since
// hammering a site that is already rate limiting us would make things
// worse, not better. After the cool-down the breaker admits exactly one
// probe call: a successful probe closes the circuit, a failed one reopens
// it for another full cool-down.
type circuitBreaker struct {
	mu sync.Mutex

	state         breakerState
	failures      int
	openedAt      time.Time
	probeInFlight bool

	failureThreshold int
	coolDown         time.Duration

	// now is swapped in tests to step through the cool-down without sleeping.
	now func() time.Time
}

func newCircuitBreaker(failureThreshold int, coolDown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		state:            breakerClosed,
		failureThreshold: failureThreshold,
		coolDown:         coolDown,
		now:              time.Now,
	}
}

// Allow reports whether a call may be issued right now. When the cool-down
// has elapsed it transitions open to half-open and grants the single probe
// slot to the caller.
func (b *circuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.coolDown {
			return false
		}
		b.state = breakerHalfOpen
		b.probeInFlight = true
		return true
	case breakerHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess resets the failure count; in half-open it closes the circuit.
func (b *circuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probeInFlight = false
	b.state = breakerClosed
}

// RecordFailure counts one network-class failure. Crossing the threshold in
// closed state, or any failure of the half-open probe, opens the circuit.
func (b *circuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.open()
		}
	case breakerHalfOpen:
		b.open()
	case breakerOpen:
		// Late result from a call issued before the trip. Already open.
	}
}

func (b *circuitBreaker) open() {
	b.state = breakerOpen
	b.openedAt = b.now()
	b.failures = 0
	b.probeInFlight = false
}

// State returns the current position for logging and reports.
func (b *circuitBreaker) State() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// breakerSet holds one breaker per agent. Breakers persist across runs so a
// site that failed repeatedly in one run stays guarded in the next.
type breakerSet struct {
	mu       sync.Mutex
	breakers map[string]*circuitBreaker

	failureThreshold int
	coolDown         time.Duration
}

func newBreakerSet(failureThreshold int, coolDown time.Duration) *breakerSet {
	return &breakerSet{
		breakers:         make(map[string]*circuitBreaker),
		failureThreshold: failureThreshold,
		coolDown:         coolDown,
	}
}

func (s *breakerSet) get(agentID string) *circuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[agentID]
	if !ok {
		b = newCircuitBreaker(s.failureThreshold, s.coolDown)
		s.breakers[agentID] = b
	}
	return b
}

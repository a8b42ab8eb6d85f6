package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Policy configures bounded exponential backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
	Jitter      time.Duration
}

// DefaultPolicy returns the retry defaults used when a backend sets none.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Factor:      2.0,
		Jitter:      100 * time.Millisecond,
	}
}

// Delay returns the wait before retry number retry (1-based), clamped to
// [BaseDelay, MaxDelay] before jitter is added.
func (p Policy) Delay(retry int, jitterFn func(time.Duration) time.Duration) time.Duration {
	if retry < 1 {
		retry = 1
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	raw := float64(p.BaseDelay) * math.Pow(factor, float64(retry-1))
	maxDelay := p.MaxDelay
	if maxDelay < p.BaseDelay {
		maxDelay = p.BaseDelay
	}
	delay := p.BaseDelay
	if raw >= float64(maxDelay) {
		delay = maxDelay
	} else if raw > float64(p.BaseDelay) {
		delay = time.Duration(raw)
	}
	return applyJitter(delay, p.Jitter, jitterFn)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// lockedRand provides jitter for backoff delays.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// Jitter returns a random duration in [0, max].
func (r *lockedRand) Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(r.r.Int63n(int64(max) + 1))
}

var defaultRand = newLockedRand(time.Now().UnixNano())

func applyJitter(value, jitter time.Duration, jitterFn func(time.Duration) time.Duration) time.Duration {
	if jitter <= 0 {
		return value
	}
	if jitterFn == nil {
		jitterFn = defaultRand.Jitter
	}
	return value + jitterFn(jitter)
}

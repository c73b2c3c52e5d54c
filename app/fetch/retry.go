package fetch

import (
	"math/rand"
	"time"
)

// RetryPolicy describes how a fetch responds to HTTP 429: number of
// attempts, exponential backoff base, backoff ceiling, and random jitter
// as a fraction of the computed delay.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	Jitter   float64
}

// PolitenessPolicy describes pre-request spacing: a fixed minimum delay
// before every request to a host, plus an extra randomized delay the first
// time the host is contacted in a run.
type PolitenessPolicy struct {
	MinSpacing    time.Duration
	FirstSeenBase time.Duration
	FirstSeenMax  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Base:     2 * time.Second,
		Cap:      30 * time.Second,
		Jitter:   0.2,
	}
}

func HardenedRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Base:     5 * time.Second,
		Cap:      60 * time.Second,
		Jitter:   0.3,
	}
}

func HardenedPolitenessPolicy() PolitenessPolicy {
	return PolitenessPolicy{
		MinSpacing:    3 * time.Second,
		FirstSeenBase: 2 * time.Second,
		FirstSeenMax:  5 * time.Second,
	}
}

// Delay returns the backoff before retry number attempt (1-based),
// exponential with jitter, capped at the ceiling.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Base * time.Duration(1<<uint(attempt-1))
	if delay > p.Cap {
		delay = p.Cap
	}

	if p.Jitter > 0 {
		jitter := time.Duration(rand.Float64() * p.Jitter * float64(delay))
		delay += jitter
	}

	return delay
}

// FirstSeenDelay returns the randomized extra spacing applied on first
// contact with a host during a run.
func (p PolitenessPolicy) FirstSeenDelay() time.Duration {
	if p.FirstSeenMax <= p.FirstSeenBase {
		return p.FirstSeenBase
	}
	span := p.FirstSeenMax - p.FirstSeenBase
	return p.FirstSeenBase + time.Duration(rand.Int63n(int64(span)))
}

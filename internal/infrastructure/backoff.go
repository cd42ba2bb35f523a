package infrastructure

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

type backoffConfig struct {
	factor    float64
	minJitter time.Duration
	maxJitter time.Duration
}

// backoffPolicy is the exponential backoff with jitter shared by the
// postgres and nats connectors.
type backoffPolicy struct {
	backoffConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func newBackoffPolicy(factor float64, minJitter, maxJitter time.Duration, defaults backoffConfig) *backoffPolicy {
	if factor < 1 {
		factor = defaults.factor
	}
	if minJitter <= 0 {
		minJitter = defaults.minJitter
	}
	if maxJitter <= 0 {
		maxJitter = defaults.maxJitter
	}
	if maxJitter < minJitter {
		maxJitter = minJitter
	}

	return &backoffPolicy{
		backoffConfig: backoffConfig{
			factor:    factor,
			minJitter: minJitter,
			maxJitter: maxJitter,
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay is capped at maxJitter.
func (p *backoffPolicy) Delay(attempt int) time.Duration {
	backoff := float64(p.minJitter) * math.Pow(p.factor, float64(attempt))
	if backoff > float64(p.maxJitter) {
		backoff = float64(p.maxJitter)
	}

	base := time.Duration(backoff)
	if p.maxJitter <= p.minJitter {
		return base
	}

	p.mu.Lock()
	jitter := time.Duration(p.rng.Int63n(int64(p.maxJitter-p.minJitter) + 1))
	p.mu.Unlock()

	result := base + jitter
	if result > p.maxJitter {
		return p.maxJitter
	}

	return result
}

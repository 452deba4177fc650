package worker

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff returns 2s, 4s, 8s... for attempt 0, 1, 2, capped at
// five minutes, plus up to 250ms of jitter.
func ExponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	base := 2 * time.Second
	capDelay := 5 * time.Minute

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	return delay + time.Duration(rand.Intn(250))*time.Millisecond
}

package infra

import "time"

const (
	baseDelay = 1 * time.Second
	maxDelay  = 30 * time.Second
)

// CalculateBackoff returns the reconnect delay for the given consecutive
// failure count: the base delay doubled per attempt, capped at 30 seconds.
// Attempts 0,1,2,... yield 1s, 2s, 4s, 8s, 16s, 30s, 30s, ...
func CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return baseDelay
	}
	if attempt >= 5 {
		return maxDelay
	}
	delay := baseDelay << uint(attempt)
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

package linking

import (
	"context"
	"log"
	"strings"
	"time"

	"kds-display-backend/internal/model"
)

// Matcher decides whether a reloaded queue is the one that was created.
type Matcher func(candidate model.Queue, name string) bool

// ExactNameFold matches queue names exactly, ignoring case and surrounding space.
func ExactNameFold(candidate model.Queue, name string) bool {
	return strings.EqualFold(strings.TrimSpace(candidate.Queue), strings.TrimSpace(name))
}

// RetryPolicy bounds the reloads used to discover the id of a queue the
// API created without returning one.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Match       Matcher
}

// DefaultRetryPolicy reloads up to three times, 300ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 300 * time.Millisecond, Match: ExactNameFold}
}

// Reloader fetches the current queue list for a confirmation attempt.
type Reloader func(ctx context.Context, attempt int) ([]model.Queue, error)

// Confirm reloads until a queue matching name with a resolvable id shows up
// and returns it with the number of attempts used. When several match, the
// highest id wins.
func (p RetryPolicy) Confirm(ctx context.Context, name string, reload Reloader) (model.Queue, int, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	match := p.Match
	if match == nil {
		match = ExactNameFold
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && p.Delay > 0 {
			select {
			case <-ctx.Done():
				return model.Queue{}, attempt - 1, ctx.Err()
			case <-time.After(p.Delay):
			}
		}
		queues, err := reload(ctx, attempt)
		if err != nil {
			log.Printf("Warning: queue reload attempt %d failed: %v", attempt, err)
			continue
		}
		if q, ok := newestMatch(queues, name, match); ok {
			return q, attempt, nil
		}
	}
	return model.Queue{}, attempts, ErrQueueNotConfirmed
}

func newestMatch(queues []model.Queue, name string, match Matcher) (model.Queue, bool) {
	var best model.Queue
	var bestID int64
	found := false
	for _, q := range queues {
		id, ok := queueID(q)
		if !ok || !match(q, name) {
			continue
		}
		if !found || id > bestID {
			best, bestID, found = q, id, true
		}
	}
	return best, found
}

package bot

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"brokerbot/internal/chat"
)

// DeliveryResult is the outcome of one recipient's delivery attempt.
type DeliveryResult struct {
	Recipient int64
	Err       error
}

// Broadcast delivers text to every recipient, continuing past individual
// failures, and returns the per-recipient outcomes so callers can observe
// partial failure instead of losing it.
func Broadcast(ctx context.Context, n chat.Notifier, recipients []int64, text string) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(recipients))
	for _, id := range recipients {
		results = append(results, DeliveryResult{Recipient: id, Err: n.Notify(ctx, id, text)})
	}
	return results
}

// CombineErrors folds delivery results into one aggregate error, nil when
// every delivery succeeded.
func CombineErrors(results []DeliveryResult) error {
	var agg *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			agg = multierror.Append(agg, r.Err)
		}
	}
	return agg.ErrorOrNil()
}

package listkit

import "context"

// BatchResult aggregates the outcome of a batch action. FailedIDs lets a
// caller re-select the records whose action failed; the selection itself is
// always cleared.
type BatchResult struct {
	Succeeded int      `json:"success_count"`
	Failed    int      `json:"fail_count"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

// RunBatchIDs applies action to each id sequentially. A failing id is
// recorded and the remaining ids still run; there is no rollback, so a
// partial failure leaves some actions applied and some not. The calls are
// deliberately serialized rather than concurrent to keep error aggregation
// simple.
func RunBatchIDs(ctx context.Context, ids []string, action func(context.Context, string) error) BatchResult {
	var res BatchResult
	for _, id := range ids {
		if err := action(ctx, id); err != nil {
			res.Failed++
			res.FailedIDs = append(res.FailedIDs, id)
			continue
		}
		res.Succeeded++
	}
	return res
}

// RunBatch applies action to every selected id and clears the selection
// unconditionally afterwards, even when some actions failed.
func RunBatch(ctx context.Context, sel *Selection, action func(context.Context, string) error) BatchResult {
	defer sel.Clear()
	return RunBatchIDs(ctx, sel.IDs(), action)
}

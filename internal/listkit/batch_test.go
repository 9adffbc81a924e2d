package listkit

import (
	"context"
	"errors"
	"testing"
)

func TestRunBatchIDsSequentialAndFaultTolerant(t *testing.T) {
	var order []string
	res := RunBatchIDs(context.Background(), []string{"1", "2", "3", "4"}, func(_ context.Context, id string) error {
		order = append(order, id)
		if id == "2" || id == "4" {
			return errors.New("boom")
		}
		return nil
	})

	if len(order) != 4 {
		t.Fatalf("one failure must not abort the rest; ran %v", order)
	}
	for i, id := range []string{"1", "2", "3", "4"} {
		if order[i] != id {
			t.Fatalf("calls must run sequentially in order, got %v", order)
		}
	}
	if res.Succeeded != 2 || res.Failed != 2 {
		t.Fatalf("expected 2/2, got %d/%d", res.Succeeded, res.Failed)
	}
}

func TestRunBatchIDsEmpty(t *testing.T) {
	res := RunBatchIDs(context.Background(), nil, func(context.Context, string) error {
		t.Fatalf("action must not run for an empty id list")
		return nil
	})
	if res.Succeeded != 0 || res.Failed != 0 || res.FailedIDs != nil {
		t.Fatalf("expected zero result, got %+v", res)
	}
}

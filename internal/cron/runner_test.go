package cronrunner

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestAddRejectsBadSpec(t *testing.T) {
	r := New(zap.NewNop(), context.Background())
	if _, err := r.Add("bad", "not a spec", 0, func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}

func TestJobRuns(t *testing.T) {
	r := New(zap.NewNop(), context.Background())
	ran := make(chan struct{}, 1)
	if _, err := r.Add("tick", "@every 1s", time.Second, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("logged, not fatal")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if r.Entries() != 1 {
		t.Fatalf("expected 1 entry, got %d", r.Entries())
	}
	r.Start()
	defer r.Stop()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSaver struct {
	mu    sync.Mutex
	saved []Stats
	fail  bool
}

func (f *fakeSaver) SaveSnapshot(_ context.Context, s Stats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection refused")
	}
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeSaver) totals() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.saved))
	for i, s := range f.saved {
		out[i] = s.TotalCompiles
	}
	return out
}

func TestRunSnapshotsSkipsUnchangedStats(t *testing.T) {
	agg := NewAggregator()
	agg.Track(CompileEvent{Criteria: "dano", Result: ResultOK})
	saver := &fakeSaver{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSnapshots(ctx, saver, agg, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(saver.totals()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []int64{1}, saver.totals(), "unchanged stats are not saved again")

	agg.Track(CompileEvent{Criteria: "(dano", Result: ResultError, ErrorKind: "unmatched_open"})
	cancel()
	<-done
	totals := saver.totals()
	assert.Equal(t, int64(2), totals[len(totals)-1], "final snapshot on shutdown")
}

func TestRunSnapshotsRetriesAfterFailure(t *testing.T) {
	agg := NewAggregator()
	agg.Track(CompileEvent{Criteria: "dano", Result: ResultOK})
	saver := &fakeSaver{fail: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSnapshots(ctx, saver, agg, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	saver.mu.Lock()
	saver.fail = false
	saver.mu.Unlock()
	assert.Eventually(t, func() bool { return len(saver.totals()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []int64{1}, saver.totals())
}

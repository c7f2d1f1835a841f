package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Batch, timeout time.Duration) Batch {
	t.Helper()
	select {
	case b, ok := <-ch:
		require.True(t, ok, "channel closed")
		return b
	case <-time.After(timeout):
		t.Fatal("timed out waiting for batch")
		return Batch{}
	}
}

func TestDebouncer_CoalescesPerKey(t *testing.T) {
	d := NewDebouncer(50*time.Millisecond, time.Second, 4)
	defer d.Close()

	d.Add("docs", Event{Type: EventCreate, Path: "a.md"})
	d.Add("docs", Event{Type: EventWrite, Path: "a.md"})
	d.Add("engine", Event{Type: EventWrite, Path: "b.md"})
	d.Add("docs", Event{Type: EventWrite, Path: "c.md"})

	got := map[string]int{}
	for i := 0; i < 2; i++ {
		b := receive(t, d.Batches(), 2*time.Second)
		got[b.Key] = len(b.Events)
	}
	assert.Equal(t, map[string]int{"docs": 3, "engine": 1}, got)

	select {
	case b := <-d.Batches():
		t.Fatalf("unexpected batch %+v", b)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_MaxDelayBoundsABusyKey(t *testing.T) {
	d := NewDebouncer(200*time.Millisecond, 300*time.Millisecond, 4)
	defer d.Close()

	start := time.Now()
	stop := time.After(time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	d.Add("docs", Event{Path: "a.md"})
	for {
		select {
		case b := <-d.Batches():
			assert.Equal(t, "docs", b.Key)
			assert.Less(t, time.Since(start), 900*time.Millisecond)
			return
		case <-ticker.C:
			d.Add("docs", Event{Path: "a.md"})
		case <-stop:
			t.Fatal("busy key was never flushed")
		}
	}
}

func TestDebouncer_CloseDropsPending(t *testing.T) {
	d := NewDebouncer(time.Hour, time.Hour, 1)
	d.Add("docs", Event{Path: "a.md"})
	d.Close()
	d.Close()

	_, ok := <-d.Batches()
	assert.False(t, ok)
	d.Add("docs", Event{Path: "b.md"})
}

package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestIDSetNoDuplicates(t *testing.T) {
	s := NewIDSet()

	added := s.Add("12가3456")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("12가3456")
	if added {
		t.Error("second Add of same id should return false")
	}

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestIDSetRemove(t *testing.T) {
	s := NewIDSet("a", "b")
	if !s.Remove("a") {
		t.Error("Remove of present id should return true")
	}
	if s.Remove("a") {
		t.Error("second Remove should return false")
	}
	if s.Contains("a") || !s.Contains("b") {
		t.Error("set contents wrong after Remove")
	}
}

func TestIDSetConcurrency(t *testing.T) {
	s := NewIDSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(context.Background(), func() {
			if s.Add("same") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var mu sync.Mutex
	var timestamps []time.Time

	for i := 0; i < 3; i++ {
		pool.Submit(context.Background(), func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	// small slack for scheduling between the limiter wake-up and the job body
	min := time.Duration(rateLimitMs-10) * time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n     int
		items int
		want  []int
	}{
		{3, 10, []int{4, 4, 2}},
		{3, 2, []int{1, 1}},
		{1, 5, []int{5}},
		{3, 0, nil},
	}

	for _, tt := range tests {
		items := make([]int, tt.items)
		got := Chunk(items, tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("Chunk(%d items, %d): got %d shards, want %d", tt.items, tt.n, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if len(got[i]) != tt.want[i] {
				t.Errorf("Chunk(%d items, %d) shard %d: got %d, want %d", tt.items, tt.n, i, len(got[i]), tt.want[i])
			}
		}
	}
}

func TestChunkBySize(t *testing.T) {
	got := ChunkBySize(make([]string, 51), 25)
	if len(got) != 3 || len(got[2]) != 1 {
		t.Errorf("ChunkBySize(51, 25): got %d chunks", len(got))
	}
}

func TestWorkerPoolStopsOnCancel(t *testing.T) {
	pool := NewWorkerPool(1, 10000)
	ctx, cancel := context.WithCancel(context.Background())

	var ran int64
	pool.Submit(ctx, func() { atomic.AddInt64(&ran, 1) })

	done := make(chan struct{})
	go func() {
		pool.Submit(ctx, func() { atomic.AddInt64(&ran, 1) })
		pool.Wait()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool kept waiting on the limiter after cancel")
	}
	if got := atomic.LoadInt64(&ran); got != 1 {
		t.Errorf("jobs run: got %d, want 1", got)
	}
	if pool.Size() != 1 {
		t.Errorf("size: got %d, want 1", pool.Size())
	}
}

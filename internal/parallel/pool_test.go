package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit", 4, 4},
		{"zero", 0, runtime.GOMAXPROCS(0)},
		{"negative", -5, runtime.GOMAXPROCS(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.workers)
			defer pool.Close()
			if pool.Workers() != tt.want {
				t.Errorf("Workers() = %d, want %d", pool.Workers(), tt.want)
			}
			if !pool.IsRunning() {
				t.Error("Pool should be running after creation")
			}
		})
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	pool.ExecuteAll(work)

	if got := counter.Load(); got != 100 {
		t.Errorf("counter = %d, want 100", got)
	}
	pool.ExecuteAll(nil)
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}

	ran := 0
	pool.ExecuteAll([]func(){func() { ran++ }, func() { ran++ }})
	if ran != 2 {
		t.Errorf("ran = %d after Close, want 2", ran)
	}
	// Close is idempotent.
	pool.Close()
}

func TestWorkerPool_ForChunks(t *testing.T) {
	tests := []struct {
		name     string
		workers  int
		n        int
		minChunk int
	}{
		{"empty", 4, 0, 1},
		{"single chunk", 4, 10, 16},
		{"many rows", 4, 1000, 1},
		{"min chunk", 2, 100, 30},
		{"one worker", 1, 57, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewWorkerPool(tt.workers)
			defer pool.Close()

			var mu sync.Mutex
			seen := make([]int, tt.n)
			pool.ForChunks(tt.n, tt.minChunk, func(lo, hi int) {
				if hi-lo < tt.minChunk && hi != tt.n {
					t.Errorf("chunk [%d, %d) smaller than %d", lo, hi, tt.minChunk)
				}
				mu.Lock()
				defer mu.Unlock()
				for i := lo; i < hi; i++ {
					seen[i]++
				}
			})
			for i, c := range seen {
				if c != 1 {
					t.Fatalf("item %d visited %d times", i, c)
				}
			}
		})
	}
}

func TestWorkerPool_Concurrent(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.ForChunks(64, 1, func(lo, hi int) { counter.Add(int64(hi - lo)) })
		}()
	}
	wg.Wait()
	if got := counter.Load(); got != 8*64 {
		t.Errorf("counter = %d, want %d", got, 8*64)
	}
}

func BenchmarkWorkerPool_ForChunks(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()
	var sink atomic.Int64
	b.ReportAllocs()
	for b.Loop() {
		pool.ForChunks(1024, 16, func(lo, hi int) { sink.Add(int64(hi - lo)) })
	}
}

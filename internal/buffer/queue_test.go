package buffer

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_PushPopOrder(t *testing.T) {
	q := New[int](4)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if v != i {
			t.Errorf("popped %d, want %d", v, i)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned true")
	}
}

func TestQueue_GrowsWhenFull(t *testing.T) {
	q := New[int](2)

	// Wrap the ring before it grows so the unwrap path is exercised.
	q.Push(0)
	q.Push(1)
	q.TryPop()
	q.Push(2)
	q.Push(3)

	stats := q.Stats()
	if stats.Grows != 1 {
		t.Errorf("Grows = %d, want 1", stats.Grows)
	}
	if stats.Capacity != 4 {
		t.Errorf("Capacity = %d, want 4", stats.Capacity)
	}

	for _, want := range []int{1, 2, 3} {
		v, ok := q.TryPop()
		if !ok || v != want {
			t.Errorf("TryPop() = %d, %v; want %d, true", v, ok, want)
		}
	}
}

func TestQueue_ManyGrows(t *testing.T) {
	q := New[int](1)

	for i := 0; i < 1000; i++ {
		q.Push(i)
	}

	stats := q.Stats()
	if stats.Len != 1000 {
		t.Errorf("Len = %d, want 1000", stats.Len)
	}
	if stats.HighWater != 1000 {
		t.Errorf("HighWater = %d, want 1000", stats.HighWater)
	}

	got := q.Drain(0)
	if len(got) != 1000 {
		t.Fatalf("Drain(0) returned %d items, want 1000", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("item %d = %d, want %d", i, v, i)
		}
	}
}

func TestQueue_DrainLimit(t *testing.T) {
	q := New[string](8)
	for _, s := range []string{"a", "b", "c"} {
		q.Push(s)
	}

	got := q.Drain(2)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Drain(2) = %v, want [a b]", got)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
	if q.Drain(5) == nil {
		t.Error("Drain(5) returned nil with one item queued")
	}
	if q.Drain(5) != nil {
		t.Error("Drain on empty queue should return nil")
	}

	stats := q.Stats()
	if stats.Pushed != 3 || stats.Popped != 3 {
		t.Errorf("Pushed/Popped = %d/%d, want 3/3", stats.Pushed, stats.Popped)
	}
}

func TestQueue_Close(t *testing.T) {
	q := New[int](4)
	q.Push(1)
	q.Close()

	if q.Push(2) {
		t.Error("Push should return false after Close")
	}
	v, ok := q.TryPop()
	if !ok || v != 1 {
		t.Errorf("TryPop() = %d, %v; want 1, true", v, ok)
	}
}

func TestQueue_ReadySignal(t *testing.T) {
	q := New[int](4)

	select {
	case <-q.Ready():
		t.Fatal("Ready fired on empty queue")
	default:
	}

	q.Push(1)
	q.Push(2)

	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready did not fire after Push")
	}

	if got := q.Drain(0); len(got) != 2 {
		t.Errorf("Drain(0) returned %d items, want 2", len(got))
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int](16)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	if q.Len() != 4000 {
		t.Errorf("Len() = %d, want 4000", q.Len())
	}
}

package queue

import (
	"testing"

	"pgregory.net/rapid"
)

func TestQueue_New(t *testing.T) {
	tests := []struct {
		name            string
		maxSize         int
		expectedMaxSize int
	}{
		{
			name:            "positive max size",
			maxSize:         50,
			expectedMaxSize: 50,
		},
		{
			name:            "zero is unbounded",
			maxSize:         0,
			expectedMaxSize: 0,
		},
		{
			name:            "negative is unbounded",
			maxSize:         -10,
			expectedMaxSize: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New[string](tt.maxSize)
			if q == nil {
				t.Fatal("New returned nil")
			}
			if q.maxSize != tt.expectedMaxSize {
				t.Errorf("expected maxSize %d, got %d", tt.expectedMaxSize, q.maxSize)
			}
			if q.Len() != 0 {
				t.Errorf("new queue should be empty, got len %d", q.Len())
			}
		})
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := New[string](0)

	values := []string{"first", "second", "third"}
	for _, v := range values {
		if err := q.Push(v); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	if q.Len() != 3 {
		t.Errorf("expected len 3, got %d", q.Len())
	}

	for i, expected := range values {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop %d returned not ok", i)
		}
		if got != expected {
			t.Errorf("Pop %d: expected %s, got %s", i, expected, got)
		}
	}

	if q.Len() != 0 {
		t.Errorf("queue should be empty after popping all, got len %d", q.Len())
	}
}

func TestQueue_MaxSize(t *testing.T) {
	q := New[int](3)

	for i := 0; i < 3; i++ {
		if err := q.Push(i); err != nil {
			t.Fatalf("Push %d failed unexpectedly: %v", i, err)
		}
	}

	if err := q.Push(99); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if q.Len() != 3 {
		t.Errorf("queue len should still be 3 after failed push, got %d", q.Len())
	}

	if _, ok := q.Pop(); !ok {
		t.Fatal("Pop should succeed")
	}
	if err := q.Push(99); err != nil {
		t.Errorf("Push after Pop should succeed, got %v", err)
	}
}

func TestQueue_UnboundedAcceptsMany(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 10_000; i++ {
		if err := q.Push(i); err != nil {
			t.Fatalf("Push %d failed: %v", i, err)
		}
	}
	if q.Len() != 10_000 {
		t.Errorf("expected len 10000, got %d", q.Len())
	}
}

func TestQueue_EmptyPop(t *testing.T) {
	q := New[string](10)

	got, ok := q.Pop()
	if ok {
		t.Error("Pop from empty queue should return false")
	}
	if got != "" {
		t.Error("Pop from empty queue should return zero value")
	}

	_ = q.Push("temp")
	q.Pop()

	got, ok = q.Pop()
	if ok {
		t.Error("Pop from emptied queue should return false")
	}
	if got != "" {
		t.Error("Pop from emptied queue should return zero value")
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New[string](10)

	if result := q.Drain(); len(result) != 0 {
		t.Error("Drain on empty queue should return empty slice")
	}

	values := []string{"1", "2", "3"}
	for _, v := range values {
		_ = q.Push(v)
	}

	result := q.Drain()
	if len(result) != len(values) {
		t.Fatalf("Drain should return %d values, got %d", len(values), len(result))
	}
	for i, v := range result {
		if v != values[i] {
			t.Errorf("Drain[%d]: expected %s, got %s", i, values[i], v)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Queue should be empty after drain, got len %d", q.Len())
	}
}

func TestQueue_DrainReturnsNewSlice(t *testing.T) {
	q := New[string](10)

	_ = q.Push("1")
	_ = q.Push("2")

	drained := q.Drain()
	drained[0] = "modified"

	_ = q.Push("3")

	got, _ := q.Pop()
	if got != "3" {
		t.Errorf("Queue internal state was corrupted by drain result modification")
	}
}

// TestQueue_MatchesSliceModel checks Push/Pop/Drain/Len against a plain slice.
func TestQueue_MatchesSliceModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := New[int](0)
		var model []int

		numOps := rapid.IntRange(1, 200).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				v := rapid.Int().Draw(t, "value")
				if err := q.Push(v); err != nil {
					t.Fatalf("Push failed: %v", err)
				}
				model = append(model, v)
			case 1:
				got, ok := q.Pop()
				if len(model) == 0 {
					if ok {
						t.Fatalf("Pop on empty queue returned %d", got)
					}
					continue
				}
				if !ok || got != model[0] {
					t.Fatalf("Pop: expected %d, got %d (ok=%v)", model[0], got, ok)
				}
				model = model[1:]
			case 2:
				got := q.Drain()
				if len(got) != len(model) {
					t.Fatalf("Drain: expected %d values, got %d", len(model), len(got))
				}
				for j := range model {
					if got[j] != model[j] {
						t.Fatalf("Drain[%d]: expected %d, got %d", j, model[j], got[j])
					}
				}
				model = nil
			}

			if q.Len() != len(model) {
				t.Fatalf("Len: expected %d, got %d", len(model), q.Len())
			}
		}
	})
}

package eventwatcher

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestProperty_SequentialMatchesModel interleaves intakes and retrieves in one
// goroutine and compares every result with a FIFO model of accepted values.
func TestProperty_SequentialMatchesModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := New[int, int](evens)
		var model []int

		numOps := rapid.IntRange(1, 100).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0, 1: // Intake
				raw := rapid.IntRange(-1000, 1000).Draw(t, "raw")
				if err := w.Intake(raw); err != nil {
					t.Fatalf("intake %d: %v", raw, err)
				}
				if raw%2 == 0 {
					model = append(model, raw)
				}

			case 2: // Retrieve
				if len(model) == 0 {
					continue
				}
				v, err := w.Retrieve(context.Background(), time.Second)
				if err != nil {
					t.Fatalf("retrieve: %v", err)
				}
				if v != model[0] {
					t.Fatalf("retrieve: expected %d, got %d", model[0], v)
				}
				model = model[1:]
			}

			if w.Len() != len(model) {
				t.Fatalf("len: expected %d, got %d", len(model), w.Len())
			}
		}
	})
}

// TestProperty_NoLossNoDuplication runs producers concurrently with a single
// consumer and checks the consumer sees exactly the accepted multiset.
func TestProperty_NoLossNoDuplication(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		producers := rapid.IntRange(1, 8).Draw(t, "producers")
		batches := make([][]int, producers)
		var accepted []int
		for p := range batches {
			batches[p] = rapid.SliceOfN(rapid.IntRange(0, 50), 0, 30).Draw(t, "batch")
			for _, raw := range batches[p] {
				if raw%2 == 0 {
					accepted = append(accepted, raw)
				}
			}
		}

		w := New[int, int](evens)

		var wg sync.WaitGroup
		for _, batch := range batches {
			wg.Add(1)
			go func(batch []int) {
				defer wg.Done()
				for _, raw := range batch {
					_ = w.Intake(raw)
				}
			}(batch)
		}

		got := make([]int, 0, len(accepted))
		for range accepted {
			v, err := w.Retrieve(context.Background(), 2*time.Second)
			if err != nil {
				t.Fatalf("retrieve after %d values: %v", len(got), err)
			}
			got = append(got, v)
		}
		wg.Wait()

		if w.Len() != 0 {
			t.Fatalf("expected empty buffer, %d left", w.Len())
		}

		sort.Ints(got)
		sort.Ints(accepted)
		if len(got) != len(accepted) {
			t.Fatalf("expected %d values, got %d", len(accepted), len(got))
		}
		for i := range got {
			if got[i] != accepted[i] {
				t.Fatalf("multiset mismatch at %d: expected %v, got %v", i, accepted, got)
			}
		}
	})
}

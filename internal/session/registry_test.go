package session

import (
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("get returns nil for an unknown chat", func(t *testing.T) {
		r := NewRegistry()
		if got := r.Get(1); got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("put stores the session under the chat id", func(t *testing.T) {
		r := NewRegistry()
		r.Put(7, &Session{Step: StepSelectingBike})

		got := r.Get(7)
		if got == nil {
			t.Fatalf("expected a session")
		}
		if got.ChatID != 7 {
			t.Fatalf("expected chat id 7, got %d", got.ChatID)
		}
		if got.Step != StepSelectingBike {
			t.Fatalf("expected step %d, got %d", StepSelectingBike, got.Step)
		}
	})

	t.Run("remove drops the session", func(t *testing.T) {
		r := NewRegistry()
		r.Put(7, &Session{})
		r.Remove(7)
		if got := r.Get(7); got != nil {
			t.Fatalf("expected nil after remove, got %+v", got)
		}
	})

	t.Run("sessions are independent per chat", func(t *testing.T) {
		r := NewRegistry()
		r.Put(1, &Session{Step: StepRentalActive, RentalID: 10})
		r.Put(2, &Session{Step: StepAwaitingRating, RentalID: 20})

		if got := r.Get(1); got.RentalID != 10 {
			t.Fatalf("expected rental 10, got %d", got.RentalID)
		}
		if got := r.Get(2); got.Step != StepAwaitingRating {
			t.Fatalf("expected step %d, got %d", StepAwaitingRating, got.Step)
		}
	})
}

func TestRegistryLock(t *testing.T) {
	r := NewRegistry()

	// Concurrent increments on one chat stay serialized under Lock.
	const workers = 32
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := r.Lock(5)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("expected %d increments, got %d", workers, counter)
	}
}

package request

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotSuccessAndFailure(t *testing.T) {
	s := NewSlot[int](nil)
	assert.Equal(t, Idle, s.Snapshot().State)

	res := s.Do(context.Background(), func(ctx context.Context) (int, error) { return 42, nil })
	require.NoError(t, res.Err)
	assert.False(t, res.Stale)
	assert.Equal(t, uint64(1), res.Seq)

	snap := s.Snapshot()
	assert.Equal(t, Success, snap.State)
	assert.Equal(t, 42, snap.Data)
	assert.Empty(t, snap.Message)

	res = s.Do(context.Background(), func(ctx context.Context) (int, error) { return 0, errors.New("boom") })
	assert.Error(t, res.Err)

	snap = s.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, 0, snap.Data, "a new call clears prior data")
	assert.Equal(t, "boom", snap.Message)
}

// TestSlotLateCallIsStale verifies an earlier call settling after a newer one cannot overwrite it
func TestSlotLateCallIsStale(t *testing.T) {
	s := NewSlot[string](func(err error) string { return "friendly: " + err.Error() })

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var first Result[string]
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = s.Do(context.Background(), func(ctx context.Context) (string, error) {
			close(firstStarted)
			<-releaseFirst
			return "old", errors.New("late failure")
		})
	}()

	<-firstStarted
	second := s.Do(context.Background(), func(ctx context.Context) (string, error) { return "new", nil })
	close(releaseFirst)
	wg.Wait()

	assert.False(t, second.Stale)
	assert.True(t, first.Stale)
	assert.Less(t, first.Seq, second.Seq)

	snap := s.Snapshot()
	assert.Equal(t, Success, snap.State)
	assert.Equal(t, "new", snap.Data)
	assert.Empty(t, snap.Message)
}

func TestSlotOnChange(t *testing.T) {
	s := NewSlot[int](nil)
	var states []State
	s.OnChange(func(snap Snapshot[int]) { states = append(states, snap.State) })

	s.Do(context.Background(), func(ctx context.Context) (int, error) { return 1, nil })
	s.Reset()

	assert.Equal(t, []State{Loading, Success, Idle}, states)
}

func TestSlotResetMakesInFlightStale(t *testing.T) {
	s := NewSlot[int](nil)
	res := s.Do(context.Background(), func(ctx context.Context) (int, error) {
		s.Reset()
		return 7, nil
	})

	assert.True(t, res.Stale)
	assert.Equal(t, Idle, s.Snapshot().State)
}

// TestSlotDropsOutdatedNotification verifies a snapshot taken before a newer call is never delivered
func TestSlotDropsOutdatedNotification(t *testing.T) {
	s := NewSlot[int](nil)
	var got []Snapshot[int]
	s.OnChange(func(snap Snapshot[int]) { got = append(got, snap) })

	s.Do(context.Background(), func(ctx context.Context) (int, error) { return 1, nil })
	outdated := s.Snapshot()
	s.Do(context.Background(), func(ctx context.Context) (int, error) { return 2, nil })
	got = nil

	s.publish(outdated)
	assert.Empty(t, got)
}

// TestSlotCallbacksRunInOrder verifies a newer call's Loading is delivered after the older Success
func TestSlotCallbacksRunInOrder(t *testing.T) {
	s := NewSlot[int](nil)

	successSeen := make(chan struct{})
	releaseSuccess := make(chan struct{})
	var mu sync.Mutex
	var order []State
	s.OnChange(func(snap Snapshot[int]) {
		if snap.State == Success && snap.Data == 1 {
			close(successSeen)
			<-releaseSuccess
		}
		mu.Lock()
		order = append(order, snap.State)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Do(context.Background(), func(ctx context.Context) (int, error) { return 1, nil })
	}()
	<-successSeen

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Do(context.Background(), func(ctx context.Context) (int, error) { return 2, nil })
	}()
	time.Sleep(20 * time.Millisecond)
	close(releaseSuccess)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Loading, Success, Loading, Success}, order)
}

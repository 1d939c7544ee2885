package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storynest/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	saves     []models.CheckpointPatch
	resets    int
	loadCp    *models.Checkpoint
	loadErr   error
	saveErr   error
	saveDelay time.Duration
}

func (f *fakeStore) Load(ctx context.Context, bookID string) (*models.Checkpoint, error) {
	return f.loadCp, f.loadErr
}

func (f *fakeStore) Save(ctx context.Context, bookID string, patch models.CheckpointPatch) error {
	time.Sleep(f.saveDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, patch)
	return f.saveErr
}

func (f *fakeStore) Reset(ctx context.Context, bookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) lastSave(t *testing.T) models.CheckpointPatch {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.saves)
	return f.saves[len(f.saves)-1]
}

func snapAt(page int) ProgressSnapshot {
	return ProgressSnapshot{
		Spread: Spread{
			LeftIndex:     (page - 1) / 2 * 2,
			RightUnlocked: page%2 == 0,
		},
		Answers: map[string]string{"q1": "red"},
	}
}

func TestRapidSavesCollapseToOneWrite(t *testing.T) {
	store := &fakeStore{}
	s := NewCheckpointSync(store, "42", 10, 20*time.Millisecond)

	s.Save(snapAt(2), false)
	s.Save(snapAt(3), false)
	s.Save(snapAt(4), false)

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, time.Millisecond)

	// Let another debounce interval pass to prove no further writes arrive.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.saveCount())

	patch := store.lastSave(t)
	require.NotNil(t, patch.PageNumber)
	assert.Equal(t, 4, *patch.PageNumber)
	require.NotNil(t, patch.PercentComplete)
	assert.Equal(t, 40, *patch.PercentComplete)
	assert.Equal(t, map[string]string{"q1": "red"}, patch.Answers)
}

func TestForceCompleteFlushesImmediatelyAtFullPercent(t *testing.T) {
	store := &fakeStore{}
	s := NewCheckpointSync(store, "42", 10, time.Hour)

	s.Save(snapAt(10), true)

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, time.Millisecond,
		"forced save must not wait for the debounce")
	patch := store.lastSave(t)
	assert.Equal(t, 100, *patch.PercentComplete)
	assert.Equal(t, 10, *patch.PageNumber)
}

func TestForceCompleteAbsorbsEarlierPending(t *testing.T) {
	store := &fakeStore{}
	s := NewCheckpointSync(store, "42", 10, time.Hour)

	s.Save(snapAt(9), false)
	s.Save(snapAt(10), true)

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, time.Second, time.Millisecond)

	// The cancelled timer never produces a stale second write.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, store.saveCount())
	assert.Equal(t, 100, *store.lastSave(t).PercentComplete)
}

func TestSaveNeverBlocksOnSlowStore(t *testing.T) {
	store := &fakeStore{saveDelay: 200 * time.Millisecond}
	s := NewCheckpointSync(store, "42", 10, 10*time.Millisecond)

	s.Save(snapAt(2), false)
	// Let the debounce fire so the slow submission is in flight.
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	s.Save(snapAt(3), false)
	assert.Less(t, time.Since(start), 50*time.Millisecond,
		"a page turn must not wait on an in-flight store round trip")

	require.Eventually(t, func() bool { return store.saveCount() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestForceCompleteReturnsBeforeStoreRoundTrip(t *testing.T) {
	store := &fakeStore{saveDelay: 200 * time.Millisecond}
	s := NewCheckpointSync(store, "42", 10, time.Hour)

	start := time.Now()
	s.Save(snapAt(10), true)
	assert.Less(t, time.Since(start), 50*time.Millisecond,
		"the completion save runs off the caller's goroutine")

	require.Eventually(t, func() bool { return store.saveCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 100, *store.lastSave(t).PercentComplete)
}

func TestFlushSubmitsPendingNow(t *testing.T) {
	store := &fakeStore{}
	s := NewCheckpointSync(store, "42", 10, time.Hour)

	s.Save(snapAt(5), false)
	assert.Equal(t, 0, store.saveCount())

	s.Flush()
	assert.Equal(t, 1, store.saveCount())
	assert.Equal(t, 5, *store.lastSave(t).PageNumber)

	// Flushing with nothing pending is a no-op.
	s.Flush()
	assert.Equal(t, 1, store.saveCount())
}

func TestCloseFlushesAndRejectsLaterWrites(t *testing.T) {
	store := &fakeStore{}
	s := NewCheckpointSync(store, "42", 10, time.Hour)

	s.Save(snapAt(3), false)
	s.Close()
	assert.Equal(t, 1, store.saveCount())

	s.Save(snapAt(7), false)
	s.Flush()
	assert.Equal(t, 1, store.saveCount())
}

func TestSetQuizStateRidesTheNextWrite(t *testing.T) {
	store := &fakeStore{}
	s := NewCheckpointSync(store, "42", 10, time.Hour)

	s.SetQuizState(`{"round":2}`)
	assert.Equal(t, 0, store.saveCount(), "quiz state alone does not arm the timer")

	s.Save(snapAt(6), false)
	s.Flush()

	patch := store.lastSave(t)
	require.NotNil(t, patch.QuizState)
	assert.Equal(t, `{"round":2}`, *patch.QuizState)
	assert.Equal(t, 6, *patch.PageNumber)
}

func TestSaveErrorIsSwallowed(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("backend down")}
	s := NewCheckpointSync(store, "42", 10, time.Hour)

	s.Save(snapAt(4), false)
	s.Flush()
	assert.Equal(t, 1, store.saveCount())

	// The sync keeps accepting writes after a failure.
	s.Save(snapAt(5), false)
	s.Flush()
	assert.Equal(t, 2, store.saveCount())
}

func TestLoadMapsStoredPageOntoSpread(t *testing.T) {
	tests := []struct {
		name string
		cp   *models.Checkpoint
		want RestoredState
	}{
		{
			name: "missing checkpoint starts fresh",
			cp:   nil,
			want: RestoredState{},
		},
		{
			name: "odd page resumes locked",
			cp:   &models.Checkpoint{PageNumber: 5, AudioPositionSec: 2.5},
			want: RestoredState{
				Spread:           Spread{LeftIndex: 4, RightUnlocked: false},
				AudioPositionSec: 2.5,
			},
		},
		{
			name: "even page resumes unlocked",
			cp:   &models.Checkpoint{PageNumber: 6},
			want: RestoredState{Spread: Spread{LeftIndex: 4, RightUnlocked: true}},
		},
		{
			name: "page beyond current content clamps to the last page",
			cp:   &models.Checkpoint{PageNumber: 40},
			want: RestoredState{Spread: Spread{LeftIndex: 8, RightUnlocked: true}},
		},
		{
			name: "zero page clamps to the first",
			cp:   &models.Checkpoint{PageNumber: 0},
			want: RestoredState{Spread: Spread{LeftIndex: 0, RightUnlocked: false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{loadCp: tt.cp}
			s := NewCheckpointSync(store, "42", 10, time.Hour)
			assert.Equal(t, tt.want, s.Load(context.Background()))
		})
	}
}

func TestLoadErrorDegradesToFreshStart(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("backend down")}
	s := NewCheckpointSync(store, "42", 10, time.Hour)
	assert.Equal(t, RestoredState{}, s.Load(context.Background()))
}

func TestResetProgressDropsPendingWrite(t *testing.T) {
	store := &fakeStore{}
	s := NewCheckpointSync(store, "42", 10, time.Hour)

	s.Save(snapAt(8), false)
	require.NoError(t, s.ResetProgress(context.Background()))

	store.mu.Lock()
	resets := store.resets
	store.mu.Unlock()
	assert.Equal(t, 1, resets)

	// The pending write from before the reset must never land.
	s.Flush()
	assert.Equal(t, 0, store.saveCount())
}

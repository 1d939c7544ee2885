package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"storynest/internal/models"
)

// CheckpointStore is the external persistence collaborator. The book
// identifier is an opaque string (numeric id or slug); the engine never
// resolves it.
type CheckpointStore interface {
	Load(ctx context.Context, bookID string) (*models.Checkpoint, error)
	Save(ctx context.Context, bookID string, patch models.CheckpointPatch) error
	Reset(ctx context.Context, bookID string) error
}

// RestoredState is what Load hands back to the navigator.
type RestoredState struct {
	Spread           Spread
	Answers          map[string]string
	QuizState        string
	AudioPositionSec float64
}

// CheckpointSync debounces progress writes for one (reader, book) pair so
// that rapid sequential transitions collapse into a single submission. The
// pending write is an explicit value with a cancellable timer, flushed on
// forced completion and on teardown. Writes are not strictly ordered
// relative to each other; the store's monotonic-max rule on the completion
// percentage compensates for reordering.
type CheckpointSync struct {
	store      CheckpointStore
	bookID     string
	totalPages int
	delay      time.Duration

	mu      sync.Mutex
	pending *models.CheckpointPatch
	timer   *time.Timer
	closed  bool
}

// DefaultDebounce is the write-collapse delay used when none is configured.
const DefaultDebounce = 180 * time.Millisecond

// NewCheckpointSync creates a sync for one book. delay <= 0 selects
// DefaultDebounce.
func NewCheckpointSync(store CheckpointStore, bookID string, totalPages int, delay time.Duration) *CheckpointSync {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &CheckpointSync{
		store:      store,
		bookID:     bookID,
		totalPages: totalPages,
		delay:      delay,
	}
}

// Save merges a snapshot into the pending write and (re)arms the debounce
// timer. forceComplete pins the percentage to 100 and flushes immediately,
// bypassing the debounce.
func (s *CheckpointSync) Save(snap ProgressSnapshot, forceComplete bool) {
	page := snap.Spread.PageNumber()
	percent := 100
	if !forceComplete && s.totalPages > 0 {
		percent = page * 100 / s.totalPages
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.pending == nil {
		s.pending = &models.CheckpointPatch{}
	}
	s.pending.PageNumber = &page
	s.pending.PercentComplete = &percent
	s.pending.AudioPositionSec = &snap.AudioPositionSec
	if snap.Answers != nil {
		s.pending.Answers = snap.Answers
	}

	if forceComplete {
		patch := s.takeLocked()
		s.mu.Unlock()
		// The caller may hold its own state lock, so the submission must
		// not run on its goroutine.
		go s.submit(patch)
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
	s.mu.Unlock()
}

// SetQuizState attaches an opaque per-story quiz payload to the pending
// write without rearming the timer on its own.
func (s *CheckpointSync) SetQuizState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = &models.CheckpointPatch{}
	}
	s.pending.QuizState = &state
}

func (s *CheckpointSync) fire() {
	s.mu.Lock()
	patch := s.takeLocked()
	s.mu.Unlock()
	s.submit(patch)
}

// takeLocked detaches the pending write and disarms the timer. Must be
// called with s.mu held; the returned patch is submitted after the lock is
// released so a slow store never blocks reading.
func (s *CheckpointSync) takeLocked() *models.CheckpointPatch {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	patch := s.pending
	s.pending = nil
	return patch
}

// submit sends one detached patch. Persistence is best-effort: errors are
// logged and swallowed so the reader keeps reading.
func (s *CheckpointSync) submit(patch *models.CheckpointPatch) {
	if patch == nil {
		return
	}
	if err := s.store.Save(context.Background(), s.bookID, *patch); err != nil {
		log.Printf("checkpoint save failed for book %s: %v", s.bookID, err)
	}
}

// Flush submits any pending write now, on the caller's goroutine.
func (s *CheckpointSync) Flush() {
	s.mu.Lock()
	patch := s.takeLocked()
	s.mu.Unlock()
	s.submit(patch)
}

// Close flushes and stops accepting writes. An already in-flight submission
// is allowed to complete: it targets server state, not local UI state.
func (s *CheckpointSync) Close() {
	s.mu.Lock()
	patch := s.takeLocked()
	s.closed = true
	s.mu.Unlock()
	s.submit(patch)
}

// Load fetches the stored checkpoint and maps its page number back onto a
// spread. A missing checkpoint, a load error, or a page number outside the
// current content bounds all degrade to a sane starting position.
func (s *CheckpointSync) Load(ctx context.Context) RestoredState {
	start := RestoredState{Spread: Spread{LeftIndex: 0, RightUnlocked: false}}

	cp, err := s.store.Load(ctx, s.bookID)
	if err != nil {
		log.Printf("checkpoint load failed for book %s: %v", s.bookID, err)
		return start
	}
	if cp == nil {
		return start
	}

	page := cp.PageNumber
	if page < 1 {
		page = 1
	}
	if s.totalPages > 0 && page > s.totalPages {
		page = s.totalPages
	}

	return RestoredState{
		Spread: Spread{
			LeftIndex:     (page - 1) / 2 * 2,
			RightUnlocked: page%2 == 0,
		},
		Answers:          cp.Answers,
		QuizState:        cp.QuizState,
		AudioPositionSec: cp.AudioPositionSec,
	}
}

// ResetProgress deletes the stored checkpoint. The caller also clears local
// spread and quiz state.
func (s *CheckpointSync) ResetProgress(ctx context.Context) error {
	s.mu.Lock()
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.store.Reset(ctx, s.bookID)
}

package engine

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"storynest/internal/models"
)

// Phase is the navigator's current state.
type Phase int

const (
	PhaseReading Phase = iota
	PhaseGated
	PhaseFlipping
	PhaseComplete
)

// Side identifies which side of the spread a pending gate targets.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

// FlipDirection is the direction of an in-progress page turn.
type FlipDirection int

const (
	FlipForward FlipDirection = iota
	FlipBackward
)

// Spread is a pair of adjacent pages displayed together. The left page is
// always visible; the right is revealed once unlocked.
type Spread struct {
	LeftIndex     int
	RightUnlocked bool
}

// RightIndex is always LeftIndex+1.
func (s Spread) RightIndex() int { return s.LeftIndex + 1 }

// PageNumber is the 1-based number of the page the reader is on: the right
// page if unlocked, else the left.
func (s Spread) PageNumber() int {
	if s.RightUnlocked {
		return s.RightIndex() + 1
	}
	return s.LeftIndex + 1
}

// ProgressSnapshot is what the navigator hands to the checkpoint layer on
// every meaningful transition.
type ProgressSnapshot struct {
	Spread           Spread
	Answers          map[string]string
	AudioPositionSec float64
}

// ProgressSink receives progress writes. Saves are best-effort; the sink
// must never block reading.
type ProgressSink interface {
	Save(snap ProgressSnapshot, forceComplete bool)
}

// AttemptRecorder submits quiz attempts to the attempt log collaborator.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt models.QuizAttempt) error
}

// BookCompleter marks the book complete server-side, returning whether an
// award was newly issued. The backend call need not be idempotent; the
// navigator guarantees at most one call per instance.
type BookCompleter interface {
	MarkComplete(ctx context.Context) (newlyAwarded bool, err error)
}

// NavigatorConfig parameterizes one navigator instance with its content and
// collaborators. One navigator serves every story; gating rules arrive as
// data, not as per-story control flow.
type NavigatorConfig struct {
	ReaderID  int64
	BookID    int64
	Pages     []models.Page
	Mode      models.QuizMode
	Sink      ProgressSink
	Recorder  AttemptRecorder
	Completer BookCompleter
	// FlipDelay is the visual settle time of a page turn. Input arriving
	// while a flip settles is ignored.
	FlipDelay time.Duration
}

// Navigator drives the two-page spread state machine. Transitions are
// strictly sequential per instance: a transition in progress ignores new
// Next/Prev input until settled.
type Navigator struct {
	mu sync.Mutex

	readerID  int64
	bookID    int64
	pages     []models.Page
	mode      models.QuizMode
	sink      ProgressSink
	recorder  AttemptRecorder
	completer BookCompleter
	flipDelay time.Duration

	phase     Phase
	spread    Spread
	gateSide  Side
	gatedPage int
	answers   map[string]string

	// newlyAwarded is exposed after completion for a one-time celebratory
	// notice; completionSent guards the at-most-once collaborator call.
	completionSent bool
	newlyAwarded   bool
}

// NewNavigator creates a navigator positioned at the first spread.
func NewNavigator(cfg NavigatorConfig) *Navigator {
	n := &Navigator{
		readerID:  cfg.ReaderID,
		bookID:    cfg.BookID,
		pages:     cfg.Pages,
		mode:      cfg.Mode,
		sink:      cfg.Sink,
		recorder:  cfg.Recorder,
		completer: cfg.Completer,
		flipDelay: cfg.FlipDelay,
		phase:     PhaseReading,
		answers:   make(map[string]string),
	}
	if n.mode == "" {
		n.mode = models.ModeRetry
	}
	return n
}

// Restore positions the navigator from a stored page number and answer map.
// Out-of-range page numbers are clamped into the current content bounds
// rather than rejected.
func (n *Navigator) Restore(pageNumber int, answers map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageNumber > len(n.pages) {
		pageNumber = len(n.pages)
	}
	n.spread = Spread{
		LeftIndex:     (pageNumber - 1) / 2 * 2,
		RightUnlocked: pageNumber%2 == 0,
	}
	n.phase = PhaseReading
	n.gateSide = SideNone
	for k, v := range answers {
		n.answers[k] = v
	}
}

// Next advances toward the next page. If the target page carries an
// unanswered question the navigator gates on it instead; answering (per the
// quiz mode) completes the blocked advance. A no-op outside Reading.
func (n *Navigator) Next() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.phase != PhaseReading {
		return
	}

	if !n.spread.RightUnlocked {
		target := n.spread.RightIndex()
		if target >= len(n.pages) {
			// Single trailing page; advancing past it finishes the book.
			n.beginFlipLocked(FlipForward)
			return
		}
		if q := n.pages[target].Question; q != nil && !n.answered(q) {
			n.phase = PhaseGated
			n.gateSide = SideRight
			n.gatedPage = target
			return
		}
		n.spread.RightUnlocked = true
		n.saveLocked(false)
		return
	}

	target := n.spread.LeftIndex + 2
	if target >= len(n.pages) {
		n.beginFlipLocked(FlipForward)
		return
	}
	if q := n.pages[target].Question; q != nil && !n.answered(q) {
		n.phase = PhaseGated
		n.gateSide = SideLeft
		n.gatedPage = target
		return
	}
	n.beginFlipLocked(FlipForward)
}

// Prev turns back one spread. Previously seen spreads are always fully
// visible, so the right page arrives unlocked. A no-op on the first spread
// or outside Reading.
func (n *Navigator) Prev() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.phase != PhaseReading || n.spread.LeftIndex == 0 {
		return
	}
	n.beginFlipLocked(FlipBackward)
}

// SubmitAnswer evaluates an answer against the gated question. In retry mode
// only a correct answer lifts the gate; in straight mode any submission does,
// with correctness recorded but not enforced. Returns whether the answer was
// correct. A no-op outside Gated.
func (n *Navigator) SubmitAnswer(answer string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.phase != PhaseGated {
		return false
	}

	q := n.pages[n.gatedPage].Question
	correct := evaluateAnswer(q, answer)
	n.recordAttemptLocked(q, correct)

	if !correct && n.mode == models.ModeRetry {
		// Stay gated awaiting a retry; the caller clears the input.
		return false
	}

	n.answers[q.Key] = answer
	side := n.gateSide
	n.gateSide = SideNone

	if side == SideRight {
		n.phase = PhaseReading
		n.spread.RightUnlocked = true
		n.saveLocked(false)
	} else {
		n.beginFlipLocked(FlipForward)
	}
	return correct
}

// Phase returns the current phase.
func (n *Navigator) Phase() Phase {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.phase
}

// Spread returns the current spread.
func (n *Navigator) Spread() Spread {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.spread
}

// CurrentPageNumber returns the 1-based page the reader is on.
func (n *Navigator) CurrentPageNumber() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.spread.PageNumber()
}

// NewlyAwarded reports whether completing the book issued a fresh award,
// for a one-time celebratory notice.
func (n *Navigator) NewlyAwarded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.newlyAwarded
}

func (n *Navigator) answered(q *models.Question) bool {
	_, ok := n.answers[q.Key]
	return ok
}

// beginFlipLocked starts a page turn and schedules its settle. Must be
// called with n.mu held.
func (n *Navigator) beginFlipLocked(dir FlipDirection) {
	n.phase = PhaseFlipping
	time.AfterFunc(n.flipDelay, func() { n.finishFlip(dir) })
}

func (n *Navigator) finishFlip(dir FlipDirection) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.phase != PhaseFlipping {
		return
	}

	if dir == FlipBackward {
		n.spread.LeftIndex -= 2
		n.spread.RightUnlocked = true
		n.phase = PhaseReading
		n.saveLocked(false)
		return
	}

	newLeft := n.spread.LeftIndex + 2
	if newLeft >= len(n.pages) {
		n.completeLocked()
		return
	}
	n.spread.LeftIndex = newLeft
	n.spread.RightUnlocked = false
	n.phase = PhaseReading
	n.saveLocked(false)
}

func (n *Navigator) completeLocked() {
	n.phase = PhaseComplete
	n.saveLocked(true)

	if n.completionSent || n.completer == nil {
		return
	}
	n.completionSent = true
	go func() {
		newly, err := n.completer.MarkComplete(context.Background())
		if err != nil {
			log.Printf("mark complete failed for book %d: %v", n.bookID, err)
			return
		}
		n.mu.Lock()
		n.newlyAwarded = newly
		n.mu.Unlock()
	}()
}

// saveLocked pushes a snapshot to the checkpoint layer. Must be called with
// n.mu held.
func (n *Navigator) saveLocked(forceComplete bool) {
	if n.sink == nil {
		return
	}
	answers := make(map[string]string, len(n.answers))
	for k, v := range n.answers {
		answers[k] = v
	}
	n.sink.Save(ProgressSnapshot{Spread: n.spread, Answers: answers}, forceComplete)
}

// recordAttemptLocked submits the attempt fire-and-forget; a lost attempt
// never blocks the gate.
func (n *Navigator) recordAttemptLocked(q *models.Question, correct bool) {
	if n.recorder == nil {
		return
	}
	score := 0
	if correct {
		score = 1
	}
	attempt := models.QuizAttempt{
		ReaderID:     n.readerID,
		BookID:       n.bookID,
		PageID:       &q.PageID,
		ScoreCorrect: score,
		ScoreTotal:   1,
		Percentage:   score * 100,
		Mode:         n.mode,
		CreatedAt:    time.Now(),
	}
	go func() {
		if err := n.recorder.RecordAttempt(context.Background(), attempt); err != nil {
			log.Printf("recording quiz attempt failed: %v", err)
		}
	}()
}

// evaluateAnswer compares case-insensitively with surrounding whitespace
// trimmed, for both free-text and choice questions.
func evaluateAnswer(q *models.Question, answer string) bool {
	got := strings.ToLower(strings.TrimSpace(answer))
	want := strings.ToLower(strings.TrimSpace(q.Answer))
	return got == want
}

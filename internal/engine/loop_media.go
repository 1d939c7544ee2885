package engine

import (
	"sync"

	"storynest/internal/models"
)

// Player is the minimal surface of an audiovisual element the controller
// drives. Decoding resources behind it are owned elsewhere; the controller
// only seeks, starts and stops playback.
type Player interface {
	Position() float64
	Seek(sec float64)
	Play()
	Pause()
}

// LoopMediaState is the persisted playback state for one clip source. It
// outlives the clip's element so that unmounting and remounting the same
// source resumes exactly where it left off.
type LoopMediaState struct {
	SourceKey            string
	PositionSec          float64
	WasPlaying           bool
	PassedInitialSegment bool
}

type activeClip struct {
	player Player
	window models.LoopWindow
}

// LoopMediaController tracks segment-looping clips across mount cycles.
// Clips play an initial segment once, then repeat a loop segment
// indefinitely. Like the resource cache it is constructed explicitly with
// process-wide lifetime, not a package global.
type LoopMediaController struct {
	mu     sync.Mutex
	states map[string]*LoopMediaState
	active map[string]*activeClip
}

// NewLoopMediaController creates an empty controller.
func NewLoopMediaController() *LoopMediaController {
	return &LoopMediaController{
		states: make(map[string]*LoopMediaState),
		active: make(map[string]*activeClip),
	}
}

// Attach binds a player element to sourceKey. A previously seen source
// resumes its recorded position and play state; a new one seeks to the
// initial segment start and begins playback.
func (c *LoopMediaController) Attach(sourceKey string, player Player, window models.LoopWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active[sourceKey] = &activeClip{player: player, window: window}

	st, ok := c.states[sourceKey]
	if !ok {
		st = &LoopMediaState{SourceKey: sourceKey, WasPlaying: true}
		st.PositionSec = window.InitialStart
		c.states[sourceKey] = st
		player.Seek(window.InitialStart)
		player.Play()
		return
	}

	player.Seek(st.PositionSec)
	if st.WasPlaying {
		player.Play()
	} else {
		player.Pause()
	}
}

// Tick records the current position and enforces segment boundaries. Called
// on a timer while the clip plays, and on pause/visibility-change events, so
// an abrupt navigation loses at most a few seconds of position.
func (c *LoopMediaController) Tick(sourceKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clip, ok := c.active[sourceKey]
	if !ok {
		return
	}
	st := c.states[sourceKey]
	if st == nil {
		return
	}

	pos := clip.player.Position()
	st.PositionSec = pos
	w := clip.window

	if !st.PassedInitialSegment {
		if pos >= w.InitialEnd {
			st.PassedInitialSegment = true
			if w.LoopStart != nil {
				c.seekLocked(clip, st, *w.LoopStart)
			} else {
				// No loop segment configured: restart from the top and
				// let the element loop natively from there.
				c.seekLocked(clip, st, 0)
			}
		}
		return
	}

	if w.LoopStart == nil || w.LoopEnd == nil {
		return
	}
	// Self-correcting: external seeks or decoder drift outside the loop
	// window snap back to the loop start.
	if pos < *w.LoopStart || pos > *w.LoopEnd {
		c.seekLocked(clip, st, *w.LoopStart)
	}
}

func (c *LoopMediaController) seekLocked(clip *activeClip, st *LoopMediaState, sec float64) {
	clip.player.Seek(sec)
	st.PositionSec = sec
}

// Pause stops playback and records the stopped state.
func (c *LoopMediaController) Pause(sourceKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clip, ok := c.active[sourceKey]
	if !ok {
		return
	}
	clip.player.Pause()
	if st := c.states[sourceKey]; st != nil {
		st.PositionSec = clip.player.Position()
		st.WasPlaying = false
	}
}

// Resume restarts playback after a Pause.
func (c *LoopMediaController) Resume(sourceKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clip, ok := c.active[sourceKey]
	if !ok {
		return
	}
	clip.player.Play()
	if st := c.states[sourceKey]; st != nil {
		st.WasPlaying = true
	}
}

// Detach persists the final position for sourceKey and unbinds its player.
// The saved state survives until Clear so a later Attach resumes it.
func (c *LoopMediaController) Detach(sourceKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clip, ok := c.active[sourceKey]
	if !ok {
		return
	}
	if st := c.states[sourceKey]; st != nil {
		st.PositionSec = clip.player.Position()
	}
	delete(c.active, sourceKey)
}

// Clear forgets the saved state for sourceKey.
func (c *LoopMediaController) Clear(sourceKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, sourceKey)
}

// State returns a copy of the saved state for sourceKey, if any.
func (c *LoopMediaController) State(sourceKey string) (LoopMediaState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[sourceKey]
	if !ok {
		return LoopMediaState{}, false
	}
	return *st, true
}

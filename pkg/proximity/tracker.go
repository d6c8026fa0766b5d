package proximity

import (
	"sync"

	"geoguide/pkg/model"
)

// Trigger names what made a point active.
type Trigger string

const (
	TriggerProximity Trigger = "proximity"
	TriggerManual    Trigger = "manual"
)

// Activation describes a point that just became active.
type Activation struct {
	Point   model.Point
	Trigger Trigger
	Seq     uint64 // increases with every activation, across Reset
}

// Tracker holds the active point and the Presented-set of one session.
//
// A reached point that was not presented before becomes active, replacing
// any other active point. A point replaced this way is not marked presented.
// Staying in range of the active point does not retrigger it. Dismiss moves
// the active id into the Presented-set, which only Reset clears.
type Tracker struct {
	mu        sync.RWMutex
	active    *model.Point
	trigger   Trigger
	seq       uint64
	presented map[string]struct{}
	order     []string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{presented: make(map[string]struct{})}
}

// Observe feeds an evaluation result and returns the activation it caused, if any.
func (t *Tracker) Observe(r Result) (Activation, bool) {
	if !r.Reached || r.Nearest == nil {
		return Activation{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil && t.active.ID == r.Nearest.ID {
		return Activation{}, false
	}
	if _, done := t.presented[r.Nearest.ID]; done {
		return Activation{}, false
	}
	return t.activate(*r.Nearest, TriggerProximity), true
}

func (t *Tracker) activate(p model.Point, trigger Trigger) Activation {
	t.active = &p
	t.trigger = trigger
	t.seq++
	return Activation{Point: p, Trigger: trigger, Seq: t.seq}
}

// Select makes p active on user request, regardless of distance or the
// Presented-set. Selecting the point that is already active does nothing.
// A point replaced by Select is not marked presented.
func (t *Tracker) Select(p model.Point) (Activation, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil && t.active.ID == p.ID {
		return Activation{}, false
	}
	return t.activate(p, TriggerManual), true
}

// Dismiss ends the active presentation and records it as presented.
func (t *Tracker) Dismiss() (id string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		return "", false
	}
	id = t.active.ID
	if _, seen := t.presented[id]; !seen {
		t.presented[id] = struct{}{}
		t.order = append(t.order, id)
	}
	t.active = nil
	t.trigger = ""
	return id, true
}

// Reset clears the active point and the Presented-set.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = nil
	t.trigger = ""
	t.presented = make(map[string]struct{})
	t.order = nil
}

// Active returns a copy of the active point and how it was triggered.
func (t *Tracker) Active() (*model.Point, Trigger) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.active == nil {
		return nil, ""
	}
	p := *t.active
	return &p, t.trigger
}

// IsPresented reports whether id was dismissed during this session.
func (t *Tracker) IsPresented(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.presented[id]
	return ok
}

// Presented returns the presented ids in dismissal order.
func (t *Tracker) Presented() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

// Seq returns the sequence number of the latest activation.
func (t *Tracker) Seq() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seq
}

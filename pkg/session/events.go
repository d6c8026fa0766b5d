package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"geoguide/pkg/metrics"
	"geoguide/pkg/model"
	"geoguide/pkg/proximity"
)

type eventKind int

const (
	evStatus eventKind = iota
	evPermission
	evPoints
	evDismiss
	evSelect
	evRestart
)

type event struct {
	kind    eventKind
	status  model.PositionStatus
	granted bool
	points  []model.Point
	point   model.Point
	reply   chan reply
}

type reply struct {
	id  string
	err error
}

// apply runs one event to completion on the loop goroutine.
func (m *Manager) apply(ev event) {
	var r reply

	switch ev.kind {
	case evStatus:
		m.status = ev.status
		if ev.status.Enabled && ev.status.Coordinate != nil {
			if c, ok := m.course.Push(*ev.status.Coordinate); ok {
				m.heading = &c
			}
		}

	case evPermission:
		summary := "granted"
		if !ev.granted {
			summary = "denied"
		}
		m.logger.Info("Location permission resolved", "granted", ev.granted)
		m.record(&model.Event{Type: model.EventPermission, Title: "Location permission", Summary: summary})

	case evPoints:
		m.points = ev.points
		index := make(map[string]model.Point, len(ev.points))
		for _, p := range ev.points {
			index[p.ID] = p
		}
		m.mu.Lock()
		m.pointByID = index
		m.mu.Unlock()
		m.logger.Debug("Point list replaced", "count", len(ev.points))

	case evDismiss:
		id, ok := m.tracker.Dismiss()
		if !ok {
			r.err = ErrNothingActive
			break
		}
		r.id = id
		metrics.Dismissals.Inc()
		title := id
		if p, found := m.Point(id); found {
			title = p.DisplayName()
		}
		m.logger.Info("Presentation dismissed", "id", id)
		m.record(&model.Event{Type: model.EventDismissed, PointID: id, Title: title})

	case evSelect:
		act, ok := m.tracker.Select(ev.point)
		if !ok {
			r.err = fmt.Errorf("%w: %s", ErrAlreadyActive, ev.point.ID)
			break
		}
		r.id = act.Point.ID
		m.activated(act)

	case evRestart:
		m.tracker.Reset()
		m.course.Reset()
		m.heading = nil
		newID := uuid.NewString()
		m.mu.Lock()
		old := m.id
		m.id = newID
		m.history = nil
		m.mu.Unlock()
		r.id = newID
		m.logger.Info("Session restarted", "previous", old, "session_id", newID)
		m.record(&model.Event{Type: model.EventRestarted, Title: "Session restarted", Summary: newID})
	}

	m.evaluate()

	if ev.reply != nil {
		ev.reply <- r
	}
}

// evaluate recomputes proximity from scratch and publishes a Snapshot.
func (m *Manager) evaluate() {
	result := proximity.Evaluate(m.status, m.points)
	if act, ok := m.tracker.Observe(result); ok {
		m.activated(act)
	}

	active, trigger := m.tracker.Active()
	presented := m.tracker.Presented()
	if presented == nil {
		presented = []string{}
	}

	snap := Snapshot{
		Status:             m.status,
		Result:             result,
		Active:             active,
		Trigger:            trigger,
		Activation:         m.tracker.Seq(),
		Presented:          presented,
		PointCount:         len(m.points),
		PermissionResolved: m.src.Resolved(),
		UpdatedAt:          time.Now(),
	}
	if m.status.Enabled && m.heading != nil {
		c := *m.heading
		snap.Course = &c
	}

	m.mu.Lock()
	snap.SessionID = m.id
	m.snapshot = snap
	observers := make([]func(Snapshot), 0, len(m.observers))
	for i := 0; i < m.nextObs; i++ {
		if fn, ok := m.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

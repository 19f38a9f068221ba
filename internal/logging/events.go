package logging

import (
	"time"

	"github.com/conn-castle/devsetup/internal/messages"
)

// PhaseStatus is the lifecycle stage carried by a PhaseEvent.
type PhaseStatus string

const (
	PhaseStarted   PhaseStatus = "started"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
)

// PhaseEvent is a structured phase-status notification.
type PhaseEvent struct {
	Ordinal int
	Total   int
	Name    string
	Status  PhaseStatus
	Detail  string
	At      time.Time
}

// Observer receives phase events in the order they occur.
type Observer interface {
	ObservePhase(event PhaseEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(event PhaseEvent)

// ObservePhase calls f(event).
func (f ObserverFunc) ObservePhase(event PhaseEvent) {
	f(event)
}

// AddObserver registers o for subsequent phase events.
func (l *Logger) AddObserver(o Observer) {
	if o == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// ReportPhase logs event and forwards it to every observer.
// A zero At is stamped with the logger clock.
func (l *Logger) ReportPhase(event PhaseEvent) {
	if event.At.IsZero() {
		event.At = l.now()
	}
	switch event.Status {
	case PhaseStarted:
		l.Infof(messages.LogPhaseStartedFmt, event.Ordinal, event.Total, event.Name)
	case PhaseCompleted:
		l.Successf(messages.LogPhaseCompletedFmt, event.Ordinal, event.Total, event.Name)
	case PhaseFailed:
		l.Errorf(messages.LogPhaseFailedFmt, event.Ordinal, event.Total, event.Name, event.Detail)
	}
	l.mu.Lock()
	observers := append([]Observer(nil), l.observers...)
	l.mu.Unlock()
	for _, o := range observers {
		o.ObservePhase(event)
	}
}

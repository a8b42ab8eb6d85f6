package live

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"forgetbench/internal/grade"
	"forgetbench/internal/runner"
)

// Controller runs the live UI and implements runner.Observer.
type Controller struct {
	events  chan Event
	program *tea.Program
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
}

var _ runner.Observer = (*Controller)(nil)

// Start launches a live UI controller that writes to stdout.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	events := make(chan Event, 256)
	model := NewModel(events, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithAltScreen())
	controller := &Controller{
		events:  events,
		program: program,
		done:    make(chan struct{}),
	}
	go func() {
		_, _ = program.Run()
		close(controller.done)
	}()
	return controller
}

// Close signals the UI to stop.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// Wait blocks until the UI has exited.
func (c *Controller) Wait() {
	if c == nil {
		return
	}
	<-c.done
}

// OnRunStart forwards run start events to the UI.
func (c *Controller) OnRunStart(runID string, conditions []grade.Condition, records int) {
	c.send(Event{Kind: EventRunStart, RunID: runID, Conditions: conditions, Records: records})
}

// OnUnitEvent forwards unit status updates to the UI.
func (c *Controller) OnUnitEvent(event runner.UnitEvent) {
	c.send(Event{Kind: EventUnit, Unit: event})
}

// OnRunEnd forwards run completion to the UI and closes it.
func (c *Controller) OnRunEnd(run runner.Run) {
	c.send(Event{Kind: EventRunEnd, Canceled: run.Canceled, Failures: len(run.Failures)})
	c.Close()
}

// send enqueues an event, blocking only while the UI is still running.
func (c *Controller) send(event Event) {
	if c == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	case <-c.done:
	}
}

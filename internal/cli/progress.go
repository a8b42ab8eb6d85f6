package cli

import (
	"fmt"
	"io"
	"sync"

	"forgetbench/internal/grade"
	"forgetbench/internal/runner"
)

// plainProgress prints one line when a run starts and one per finished
// condition. It is the observer for non-TTY, non-verbose runs.
type plainProgress struct {
	mu       sync.Mutex
	out      io.Writer
	records  int
	finished map[grade.Condition]*conditionTally
}

type conditionTally struct {
	done    int
	correct int
	failed  int
}

func newPlainProgress(out io.Writer) *plainProgress {
	return &plainProgress{out: out, finished: map[grade.Condition]*conditionTally{}}
}

func (p *plainProgress) OnRunStart(runID string, conditions []grade.Condition, records int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = records
	fmt.Fprintf(p.out, "Run %s: %d condition(s) x %d record(s)\n", runID, len(conditions), records)
}

func (p *plainProgress) OnUnitEvent(event runner.UnitEvent) {
	if !event.Type.Terminal() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	tally, ok := p.finished[event.Condition]
	if !ok {
		tally = &conditionTally{}
		p.finished[event.Condition] = tally
	}
	tally.done++
	switch event.Type {
	case runner.UnitCorrect:
		tally.correct++
	case runner.UnitFailed, runner.UnitSkipped:
		tally.failed++
	}
	if tally.done == p.records {
		fmt.Fprintf(p.out, "%s: %d/%d correct, %d without verdict\n", event.Condition, tally.correct, p.records, tally.failed)
	}
}

func (p *plainProgress) OnRunEnd(runner.Run) {}

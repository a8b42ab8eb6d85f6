package ledger

import (
	"sort"
	"sync"
)

// Usage counts provider consumption for one condition.
type Usage struct {
	Units            int   `json:"units"`
	Attempts         int   `json:"attempts"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// Add returns the field-wise sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		Units:            u.Units + other.Units,
		Attempts:         u.Attempts + other.Attempts,
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
	}
}

// Tokens is the prompt plus completion token count.
func (u Usage) Tokens() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// Entry is the usage of one backend/mode pair.
type Entry struct {
	Backend string `json:"backend"`
	Mode    string `json:"mode"`
	Usage
}

type key struct {
	backend string
	mode    string
}

// Accumulator collects usage for a single run. The zero value is ready to use.
type Accumulator struct {
	mu      sync.Mutex
	entries map[key]Usage
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{entries: map[key]Usage{}}
}

// Add records usage for backend and mode.
func (a *Accumulator) Add(backend, mode string, usage Usage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.entries == nil {
		a.entries = map[key]Usage{}
	}
	k := key{backend: backend, mode: mode}
	a.entries[k] = a.entries[k].Add(usage)
}

// Merge folds other into a. other is left unchanged.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil || other == a {
		return
	}
	for _, entry := range other.Totals() {
		a.Add(entry.Backend, entry.Mode, entry.Usage)
	}
}

// Totals returns one entry per backend/mode, sorted by backend then mode.
func (a *Accumulator) Totals() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, 0, len(a.entries))
	for k, usage := range a.entries {
		out = append(out, Entry{Backend: k.backend, Mode: k.mode, Usage: usage})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Backend != out[j].Backend {
			return out[i].Backend < out[j].Backend
		}
		return out[i].Mode < out[j].Mode
	})
	return out
}

// Total sums every entry.
func (a *Accumulator) Total() Usage {
	var total Usage
	for _, entry := range a.Totals() {
		total = total.Add(entry.Usage)
	}
	return total
}

// ByBackend sums entries per backend.
func ByBackend(entries []Entry) map[string]Usage {
	out := map[string]Usage{}
	for _, entry := range entries {
		out[entry.Backend] = out[entry.Backend].Add(entry.Usage)
	}
	return out
}

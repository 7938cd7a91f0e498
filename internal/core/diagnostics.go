package core

import (
	"sort"
	"sync"
)

// Diagnostics collects recoverable problems from concurrent workers so
// they can be reported once at the end of a run.
type Diagnostics struct {
	mu    sync.Mutex
	items []error
}

// Add records err. Nil errors are ignored.
func (d *Diagnostics) Add(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, err := range errs {
		if err != nil {
			d.items = append(d.items, err)
		}
	}
}

// Len returns the number of recorded diagnostics.
func (d *Diagnostics) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// All returns the recorded diagnostics ordered by message.
func (d *Diagnostics) All() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := append([]error(nil), d.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Error() < out[j].Error() })
	return out
}

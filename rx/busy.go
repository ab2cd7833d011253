package rx

import "sync"

// Busy folds the busy signals of overlapping calls into one flag. It reports
// true when the first call starts and false only once every started call has
// finished, so a superseded call cannot clear the flag of the one replacing it.
type Busy struct {
	mu      sync.Mutex
	running int
	out     Observer[bool]
}

// NewBusy returns a Busy that forwards transitions to out.
func NewBusy(out Observer[bool]) *Busy {
	return &Busy{out: out}
}

// Observe records one busy signal from a call. Pass it as the busy observer of
// Call.
func (b *Busy) Observe(v bool) {
	b.mu.Lock()
	was := b.running > 0
	switch {
	case v:
		b.running++
	case b.running > 0:
		b.running--
	}
	now := b.running > 0
	b.mu.Unlock()
	if now != was && b.out != nil {
		b.out(now)
	}
}

// Running returns the number of calls currently in flight.
func (b *Busy) Running() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

package governance

import "time"

// Clock is the sole source of "now" for every governance-core component.
// It is always injected, never read from a package-level global, so the
// same inputs reproduce the same audit hashes.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock. It belongs at the edges of the
// program (CLI, adapters) — never passed implicitly inside the core.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock returns a constant instant, used by tests and by any caller
// that needs byte-identical, reproducible audit output.
type FixedClock struct {
	At time.Time
}

func (f FixedClock) Now() time.Time { return f.At }

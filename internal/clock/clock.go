package clock

import "time"

// Clock abstracts the time source so settlement math can be driven by a fixed
// clock in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func System() Clock { return systemClock{} }

// Fixed is a settable clock for tests.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

func (f *Fixed) Set(unix int64) { f.T = time.Unix(unix, 0).UTC() }

func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }

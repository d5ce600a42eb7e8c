package clock

import "time"

// Clock abstracts wall-clock reads. Callers capture Now once per operation so
// every temporal predicate within that operation sees the same instant.
type Clock interface {
	Now() time.Time
}

func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Fixed returns a clock frozen at t, for deterministic tests.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

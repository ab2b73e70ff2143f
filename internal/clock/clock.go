package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so date-scoped numbering can be tested.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// New returns the process wall clock.
func New() Clock { return systemClock{} }

var Module = fx.Module("clock",
	fx.Provide(New),
)

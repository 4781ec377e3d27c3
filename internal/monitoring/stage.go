package monitoring

import (
	"time"

	"github.com/banshee-data/trajprep/internal/timeutil"
)

// Stage times one pipeline stage. Call Done when the stage finishes; it logs
// the stage name, item count and elapsed time through Logf.
type Stage struct {
	name  string
	start time.Time
	clock timeutil.Clock
}

// StartStage logs the start of a named stage and returns its timer.
func StartStage(name string) *Stage {
	return StartStageWithClock(name, timeutil.RealClock{})
}

// StartStageWithClock is StartStage with an explicit clock.
func StartStageWithClock(name string, clock timeutil.Clock) *Stage {
	Logf("[%s] started", name)
	return &Stage{name: name, start: clock.Now(), clock: clock}
}

// Done logs completion with the number of items the stage produced and
// returns the elapsed duration.
func (s *Stage) Done(items int) time.Duration {
	elapsed := s.clock.Since(s.start)
	Logf("[%s] done: items=%d elapsed=%s", s.name, items, elapsed.Round(time.Millisecond))
	return elapsed
}

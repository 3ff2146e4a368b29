package helpers

import (
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
)

type LogFunc func(format string, args ...interface{})

func Discardf(format string, args ...interface{}) {}

type Fataler interface {
	Fatal(args ...interface{})
	Logf(format string, args ...interface{})
}

func FoldErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			ss = append(ss, e.Error())
		}
	}
	if len(ss) == 0 {
		return nil
	}
	return errors.New(strings.Join(ss, "\n"))
}

func IntSecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Second
}

// SleepAlive waits d or until a.Stop(), whichever comes first.
// Returns false when the wait was cut short by Stop().
func SleepAlive(a *alive.Alive, d time.Duration) bool {
	if d <= 0 {
		return a.IsRunning()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-a.StopChan():
		return false
	}
}

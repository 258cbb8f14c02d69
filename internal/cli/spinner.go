package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// StartSpinner shows a spinner with suffix on w while a request is in flight
// and returns the function that stops it. Quiet mode returns a no-op.
func StartSpinner(w io.Writer, suffix string, quiet bool) func() {
	if quiet {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

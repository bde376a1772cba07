// Package output provides output formatting for the clubmesh CLI.
package output

import (
	"fmt"
	"io"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message on one line until stopped. Writes go to
// stderr in practice so they never mix with command output.
type Spinner struct {
	w       io.Writer
	message string
	done    chan struct{}
}

// NewSpinner creates a spinner for the given message.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{w: w, message: message, done: make(chan struct{})}
}

// Start begins the animation in a background goroutine.
func (s *Spinner) Start() {
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	close(s.done)
	fmt.Fprint(s.w, "\r\033[K")
}

// Success halts the animation and prints a check-marked message.
func (s *Spinner) Success(message string) {
	close(s.done)
	fmt.Fprintf(s.w, "\r✓ %s\n", message)
}

// Fail halts the animation and prints a cross-marked message.
func (s *Spinner) Fail(message string) {
	close(s.done)
	fmt.Fprintf(s.w, "\r✗ %s\n", message)
}

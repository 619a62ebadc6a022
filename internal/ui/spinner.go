package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// spinnerFrames is the braille dot animation.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is an animated status indicator written to stderr so stdout
// stays clean for piping. It is a no-op when the output is not a TTY.
type Spinner struct {
	out      io.Writer
	styles   *Styles
	interval time.Duration

	mu      sync.Mutex
	message string
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner() *Spinner {
	return &Spinner{
		out:      os.Stderr,
		styles:   DefaultStyles(),
		interval: 80 * time.Millisecond,
	}
}

// newSpinnerTo creates a spinner for a specific writer, for tests.
func newSpinnerTo(out io.Writer, styles *Styles) *Spinner {
	return &Spinner{
		out:      out,
		styles:   styles,
		interval: 80 * time.Millisecond,
	}
}

// Start begins the animation with the given message. Starting a running
// spinner only updates the message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	if s.running {
		s.message = message
		s.mu.Unlock()
		return
	}
	s.running = true
	s.message = message
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		i := 0
		s.draw(i)
		for {
			select {
			case <-stop:
				// Clear the spinner line
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
				i = (i + 1) % len(spinnerFrames)
				s.draw(i)
			}
		}
	}()
}

func (s *Spinner) draw(frame int) {
	s.mu.Lock()
	msg := s.message
	s.mu.Unlock()
	fmt.Fprintf(s.out, "\r\033[K%s %s", s.styles.Spinner.Render(spinnerFrames[frame]), msg)
}

// UpdateMessage changes the spinner text while running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. Safe to call twice.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

// IsRunning reports whether the spinner is active.
func (s *Spinner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

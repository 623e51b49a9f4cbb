package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerFrames cycles a quarter-circle glyph next to the stage message.
var spinnerFrames = []string{"◜", "◠", "◝", "◞", "◡", "◟"}

const spinnerInterval = 100 * time.Millisecond

// spinner is a line-rewriting progress indicator for the long stages:
// plan construction, coverage rendering, and backend generation. The
// animation starts immediately and stops on its own when the command's
// context is cancelled.
type spinner struct {
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	idle    chan struct{} // closed when the render loop has exited
}

// newSpinner starts a spinner on stderr tied to ctx.
func newSpinner(ctx context.Context, message string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	s := &spinner{
		message: message,
		ctx:     ctx,
		cancel:  cancel,
		idle:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *spinner) loop() {
	defer close(s.idle)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-ticker.C:
			frame := spinnerFrames[i%len(spinnerFrames)]
			fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
		}
	}
}

// Stop halts the animation and clears the line. Safe to call repeatedly
// and after the context was cancelled.
func (s *spinner) Stop() {
	s.once.Do(s.cancel)
	<-s.idle
}

// StopWithError stops the spinner and prints a failure line in its place.
func (s *spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// clear overwrites the rendered frame and message with spaces.
// Only the render loop writes to stderr, so no locking is needed.
func (s *spinner) clear() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

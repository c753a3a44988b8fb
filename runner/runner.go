// Package runner owns the loaded program and the cancellable
// background task that feeds it, line by line, to the command
// interpreter at hardware pace.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/PongKJ/zmc-controller-upper/gcode"
	"github.com/PongKJ/zmc-controller-upper/session"
)

var (
	ErrAlreadyRunning = errors.New("runner: execution already in progress")
	ErrRunning        = errors.New("runner: program is running")
)

// ExecError marks a hardware failure on a specific program line. The
// run halts with the cursor still on that line.
type ExecError struct {
	Line int
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execute line %d: %v", e.Line+1, e.Err)
}
func (e *ExecError) Unwrap() error { return e.Err }

// Runner executes a loaded program against the controller session.
// At most one execution loop is active per Runner.
type Runner struct {
	sess *session.Manager

	mx        sync.Mutex
	lines     []string
	programID string
	cursor    int
	running   bool
	cancel    context.CancelFunc
}

func New(sess *session.Manager) *Runner {
	return &Runner{sess: sess}
}

// Load replaces the program wholesale and resets the cursor. It is
// rejected while a run is active.
func (r *Runner) Load(text string) (string, error) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.running {
		return "", ErrRunning
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	r.lines = strings.Split(text, "\n")
	r.programID = uuid.NewString()
	r.cursor = 0
	return r.programID, nil
}

func (r *Runner) ProgramID() string {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.programID
}

// Cursor is the index of the next line to execute; Cursor() == Len()
// means the run completed.
func (r *Runner) Cursor() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.cursor
}

func (r *Runner) Len() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return len(r.lines)
}

func (r *Runner) Running() bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.running
}

// Reset rewinds the cursor. It has no hardware effect and may be
// called whether or not a run is active.
func (r *Runner) Reset() {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.cursor = 0
}

// Start spawns the execution loop. It fails if a loop is already
// active or no controller session is open.
func (r *Runner) Start() error {
	if !r.sess.IsOpen() {
		return session.ErrNotOpen
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.cancel = cancel
	go r.run(ctx)
	return nil
}

// Stop cancels the execution loop immediately. A move already issued
// to the controller stays in flight; callers wanting a full halt must
// also stop the hardware.
func (r *Runner) Stop() {
	r.mx.Lock()
	cancel := r.cancel
	r.mx.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) run(ctx context.Context) {
	defer func() {
		r.mx.Lock()
		r.running = false
		r.cancel = nil
		r.mx.Unlock()
	}()

	ic := newInterpContext()
	for ctx.Err() == nil {
		r.mx.Lock()
		if r.cursor >= len(r.lines) {
			r.mx.Unlock()
			log.Println("all program lines executed")
			return
		}
		n, line := r.cursor, r.lines[r.cursor]
		r.mx.Unlock()

		cmd := gcode.ParseLine(line)
		if cmd == nil {
			// blank or comment-only lines are skipped, never fatal
			if strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), ";") {
				log.Printf("skipping unparsable line %d: %q", n+1, line)
			}
		} else if err := interpret(r.sess, ic, cmd); err != nil {
			log.Printf("ERROR: %+v", &ExecError{Line: n, Err: err})
			return
		}

		err := r.waitIdle(ctx, allAxes)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("ERROR: %+v", &ExecError{Line: n, Err: err})
			}
			return
		}

		r.mx.Lock()
		r.cursor++
		r.mx.Unlock()
	}
}

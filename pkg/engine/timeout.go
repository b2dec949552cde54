package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/brepbridge/pkg/model"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished after
	// a newer one had started.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

type evalResult struct {
	model  *model.Model
	errors []EvalError
	err    error
}

// begin starts a new generation and returns it.
func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) latest(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout <= 0 {
		return EvalTimeout
	}
	return e.Timeout
}

// wait blocks for the result of generation gen. A timed-out goroutine keeps
// running; its result is dropped once a newer generation exists.
func (e *Engine) wait(ch <-chan evalResult, gen uint64) (*model.Model, []EvalError, error) {
	d := e.timeout()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.latest(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.model, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, d)
	}
}

package step

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/janisto/onboarding-wizard/internal/onboarding/form"
)

// Controller errors
var (
	ErrSubmissionRequired = errors.New("step can only be left by submitting")
	ErrReadOnly           = errors.New("confirmation step is read-only")
	ErrNoPreviousStep     = errors.New("already at the first step")
)

// ValidationError reports the fields that blocked leaving a step.
type ValidationError struct {
	Step   Index
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s step has %d invalid field(s)", e.Step, len(e.Fields))
}

// Controller owns the current step and the accumulated submission.
type Controller struct {
	mu      sync.Mutex
	store   *form.Store
	current Index
	acc     Accumulated
}

// NewController starts at the personal details step.
func NewController(store *form.Store) *Controller {
	return &Controller{store: store, current: Personal}
}

// Current returns the current step index.
func (c *Controller) Current() Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Accumulated returns a copy of the values merged so far.
func (c *Controller) Accumulated() Accumulated {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acc.Clone()
}

// Advance validates the current step's fields, merges them and moves to the
// next step. The picture step is left only through a successful submission.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.current {
	case Picture:
		return ErrSubmissionRequired
	case Confirmation:
		return ErrReadOnly
	}
	if err := c.stageLocked(); err != nil {
		return err
	}
	c.current++
	return nil
}

// Stage validates and merges the current step without moving.
func (c *Controller) Stage() (Accumulated, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == Confirmation {
		return Accumulated{}, ErrReadOnly
	}
	if err := c.stageLocked(); err != nil {
		return Accumulated{}, err
	}
	return c.acc.Clone(), nil
}

func (c *Controller) stageLocked() error {
	s := For(c.current)
	if !c.store.Validate(s.Fields()...) {
		return &ValidationError{Step: c.current, Fields: c.stepErrors(s)}
	}
	s.merge(&c.acc, c.store.Draft())
	return nil
}

func (c *Controller) stepErrors(s Step) map[string]string {
	all := c.store.Errors()
	out := map[string]string{}
	for _, f := range s.Fields() {
		for k, v := range all {
			if k == string(f) || strings.HasPrefix(k, string(f)+".") {
				out[k] = v
			}
		}
	}
	return out
}

// Retreat moves back one step without validating. Entered values stay in the store.
func (c *Controller) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.current {
	case Personal:
		return ErrNoPreviousStep
	case Confirmation:
		return ErrReadOnly
	}
	c.current--
	return nil
}

// OnSubmissionResult moves to the confirmation step on success.
// A failed submission leaves the step and accumulated values untouched.
func (c *Controller) OnSubmissionResult(success bool) {
	if !success {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = Confirmation
}

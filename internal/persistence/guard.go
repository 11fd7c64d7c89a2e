package persistence

import (
	"fmt"

	"github.com/koustreak/datrec/internal/errs"
)

type actionState int

const (
	actionPending actionState = iota
	actionFailed
	actionSucceeded
	actionRepeated
	actionClosed
)

// guard wraps the action handed to an around hook and records how the hook
// used it.
type guard[S any] struct {
	hook   string
	state  actionState
	result S
	err    error
}

func newGuard[S any](hook string) *guard[S] {
	return &guard[S]{hook: hook}
}

// run executes action the first time it is called. Later calls never run
// action again, and neither does a call made after the hook returned.
func (g *guard[S]) run(action func() (S, error)) (S, error) {
	var zero S
	if g.state == actionClosed {
		return zero, errs.New(errs.ErrKindCallbackMisuse,
			fmt.Sprintf("%s invoked its action after returning", g.hook))
	}
	if g.state != actionPending {
		g.state = actionRepeated
		return zero, errs.New(errs.ErrKindCallbackMisuse,
			fmt.Sprintf("%s invoked its action more than once", g.hook))
	}

	s, err := action()
	if err != nil {
		g.state = actionFailed
		g.err = err
		return zero, err
	}
	g.state = actionSucceeded
	g.result = s
	return s, nil
}

// finish checks the hook's contract once it has returned hookErr. The guard
// is closed afterwards.
func (g *guard[S]) finish(hookErr error) (S, error) {
	var zero S
	state := g.state
	g.state = actionClosed
	if hookErr != nil {
		return zero, hookErr
	}

	switch state {
	case actionSucceeded:
		return g.result, nil
	case actionPending:
		return zero, errs.New(errs.ErrKindCallbackMisuse,
			fmt.Sprintf("%s did not invoke its action", g.hook))
	case actionFailed:
		return zero, errs.Wrap(errs.ErrKindCallbackMisuse,
			fmt.Sprintf("%s discarded the error of its action", g.hook), g.err)
	default:
		return zero, errs.New(errs.ErrKindCallbackMisuse,
			fmt.Sprintf("%s invoked its action more than once", g.hook))
	}
}

package board

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownAction is returned by Dispatch and ParseAction for anything
// outside the closed action set.
var ErrUnknownAction = errors.New("unknown action")

// Action is a user interaction the board handles. The set is closed:
// SignupAction and UnregisterAction are the only variants.
type Action interface {
	isAction()
}

// SignupAction submits the signup form.
type SignupAction struct {
	Email    string
	Activity string
}

// UnregisterAction is a click on a participant's unregister control.
type UnregisterAction struct {
	Activity string
	Email    string
}

func (SignupAction) isAction()     {}
func (UnregisterAction) isAction() {}

// Action kinds as carried by form controls.
const (
	KindSignup     = "signup"
	KindUnregister = "unregister"
)

// ParseAction decodes a control's encoded identity into an Action.
func ParseAction(kind, activity, email string) (Action, error) {
	switch kind {
	case KindSignup:
		return SignupAction{Email: email, Activity: activity}, nil
	case KindUnregister:
		return UnregisterAction{Activity: activity, Email: email}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
}

// Dispatch routes an action to its handler. confirm is consulted for
// unregister only.
func (b *Board) Dispatch(ctx context.Context, a Action, confirm Confirmer) error {
	switch a := a.(type) {
	case SignupAction:
		return b.Signup(ctx, a.Email, a.Activity)
	case UnregisterAction:
		return b.Unregister(ctx, a.Activity, a.Email, confirm)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

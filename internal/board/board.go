// Package board is the activity board controller: it loads the catalog from
// the activities API, renders it, and handles signup and unregister actions,
// resynchronizing the whole view from the server after every mutation.
//
// All view state lives in one State owned by a Board. Handlers never hold
// the board lock across a network call; they mutate state only after the
// call they await has resolved.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/client"
	"github.com/Shivanand-hulikatti/activity-board/internal/model"
)

// User-facing texts.
const (
	LoadFailedText       = "Failed to load activities. Please try again later."
	SignupFailedText     = "Failed to sign up. Please try again."
	UnregisterFailedText = "Failed to unregister. Please try again."
	GenericErrorText     = "An error occurred"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 5 * time.Second

var (
	// ErrSubmitInFlight is returned when a signup arrives while another is
	// still running.
	ErrSubmitInFlight = errors.New("signup already in progress")
	// ErrNotConfirmed is returned when the user declines to unregister.
	ErrNotConfirmed = errors.New("unregister not confirmed")
	// ErrStaleResponse is returned when a catalog response arrives after a
	// newer one has already been applied.
	ErrStaleResponse = errors.New("stale catalog response discarded")
)

// API is the subset of the activities API the board consumes.
type API interface {
	ListActivities(ctx context.Context) (model.Catalog, error)
	Signup(ctx context.Context, activity, email string) (string, error)
	Unregister(ctx context.Context, activity, email string) (string, error)
}

// Confirmer asks the user to confirm an unregister.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// ConfirmPrompt is the question asked before unregistering.
func ConfirmPrompt(activity, email string) string {
	return fmt.Sprintf("Unregister %s from \"%s\"?", email, activity)
}

// NotifyMode selects how hide timers interact with later notifications.
type NotifyMode int

const (
	// NotifyGeneration hides a notification only if no newer one was shown
	// since its timer started.
	NotifyGeneration NotifyMode = iota
	// NotifyLegacy lets every timer hide whatever is showing, so an older
	// timer can hide a newer notification early.
	NotifyLegacy
)

// Kind is the notification style.
type Kind string

// Notification kinds.
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is the transient message shown above the form.
type Notification struct {
	Text    string
	Kind    Kind
	Visible bool
}

// Form is the signup form state.
type Form struct {
	Email          string
	Activity       string
	SubmitDisabled bool
}

// State is everything the page renders. Slices inside are never modified
// after they are stored, so copies may share them.
type State struct {
	View         View
	ListError    string
	Loaded       bool
	Form         Form
	Notification Notification
}

// Board owns one view's state.
type Board struct {
	api    API
	clock  Clock
	ttl    time.Duration
	mode   NotifyMode
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	seq     uint64 // last refresh sequence number handed out
	applied uint64 // sequence number of the last applied refresh
	gen     uint64 // notification generation
}

// Option configures a Board.
type Option func(*Board)

// WithClock sets the clock used for hide timers.
func WithClock(c Clock) Option {
	return func(b *Board) { b.clock = c }
}

// WithNotificationTTL sets how long notifications stay visible.
func WithNotificationTTL(d time.Duration) Option {
	return func(b *Board) { b.ttl = d }
}

// WithNotifyMode sets the hide-timer mode.
func WithNotifyMode(m NotifyMode) Option {
	return func(b *Board) { b.mode = m }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) { b.logger = l }
}

// New creates a Board in its pre-load state.
func New(api API, opts ...Option) *Board {
	b := &Board{
		api:    api,
		clock:  realClock{},
		ttl:    DefaultNotificationTTL,
		mode:   NotifyGeneration,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:  State{View: EmptyView()},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Refresh reloads the catalog and rebuilds the list and selection control.
//
// On failure the list is replaced by LoadFailedText and the selection
// control keeps its previous options. A response older than one already
// applied is dropped and ErrStaleResponse returned.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	catalog, err := b.api.ListActivities(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq <= b.applied {
		b.logger.Debug("activities_response_stale", "seq", seq, "applied", b.applied)
		return ErrStaleResponse
	}
	b.applied = seq

	if err != nil {
		b.logger.Error("activities_load_failed", "error", err)
		b.state.View.Cards = nil
		b.state.ListError = LoadFailedText
		return err
	}

	b.state.View = Render(catalog)
	b.state.ListError = ""
	b.state.Loaded = true
	b.state.Form.Activity = ""
	return nil
}

// Signup registers email for activity. The submit control is disabled for
// the whole call, including the follow-up refresh.
func (b *Board) Signup(ctx context.Context, email, activity string) error {
	b.mu.Lock()
	if b.state.Form.SubmitDisabled {
		b.mu.Unlock()
		return ErrSubmitInFlight
	}
	b.state.Form = Form{Email: email, Activity: activity, SubmitDisabled: true}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.state.Form.SubmitDisabled = false
		b.mu.Unlock()
	}()

	msg, err := b.api.Signup(ctx, activity, email)
	if err != nil {
		b.notifyFailure("signup", err, SignupFailedText)
		return err
	}

	b.mu.Lock()
	b.notifyLocked(msg, KindSuccess)
	b.state.Form.Email = ""
	b.state.Form.Activity = ""
	b.mu.Unlock()

	b.logger.Info("signup_succeeded", "activity", activity)
	if err := b.Refresh(ctx); err != nil {
		b.logger.Debug("refresh_after_signup", "error", err)
	}
	return nil
}

// Unregister removes email from activity after the user confirms.
// Declining leaves state untouched and returns ErrNotConfirmed.
func (b *Board) Unregister(ctx context.Context, activity, email string, confirm Confirmer) error {
	if confirm == nil || !confirm.Confirm(ctx, ConfirmPrompt(activity, email)) {
		return ErrNotConfirmed
	}

	msg, err := b.api.Unregister(ctx, activity, email)
	if err != nil {
		b.notifyFailure("unregister", err, UnregisterFailedText)
		return err
	}

	b.mu.Lock()
	b.notifyLocked(msg, KindSuccess)
	b.mu.Unlock()

	b.logger.Info("unregister_succeeded", "activity", activity)
	if err := b.Refresh(ctx); err != nil {
		b.logger.Debug("refresh_after_unregister", "error", err)
	}
	return nil
}

// notifyFailure shows the server's detail for a rejected request and
// fallback for a transport or decode failure.
func (b *Board) notifyFailure(op string, err error, fallback string) {
	var apiErr *client.APIError
	text := fallback
	if errors.As(err, &apiErr) {
		text = apiErr.Detail
		if text == "" {
			text = GenericErrorText
		}
		b.logger.Warn(op+"_rejected", "status", apiErr.Status, "detail", apiErr.Detail)
	} else {
		b.logger.Error(op+"_failed", "error", err)
	}

	b.mu.Lock()
	b.notifyLocked(text, KindError)
	b.mu.Unlock()
}

// notifyLocked shows a notification and starts its hide timer.
// b.mu must be held.
func (b *Board) notifyLocked(text string, kind Kind) {
	b.gen++
	gen := b.gen
	b.state.Notification = Notification{Text: text, Kind: kind, Visible: true}

	b.clock.AfterFunc(b.ttl, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.mode == NotifyLegacy || b.gen == gen {
			b.state.Notification.Visible = false
		}
	})
}

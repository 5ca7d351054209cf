package board_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/board"
	"github.com/Shivanand-hulikatti/activity-board/internal/client"
	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fake clock ---

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) board.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// --- Fake API ---

type call struct {
	Activity string
	Email    string
}

// fakeAPI implements board.API in memory. Hooks, when set, replace the
// default behaviour of the matching method.
type fakeAPI struct {
	mu         sync.Mutex
	catalog    model.Catalog
	listErr    error
	listCalls  int
	signups    []call
	removals   []call
	signupMsg  string
	signupErr  error
	removeMsg  string
	removeErr  error
	signupHook func()
	listHook   func(n int) (model.Catalog, error)
}

func (f *fakeAPI) ListActivities(ctx context.Context) (model.Catalog, error) {
	f.mu.Lock()
	f.listCalls++
	n := f.listCalls
	hook := f.listHook
	catalog, err := f.catalog.Clone(), f.listErr
	f.mu.Unlock()
	if hook != nil {
		return hook(n)
	}
	return catalog, err
}

func (f *fakeAPI) Signup(ctx context.Context, activity, email string) (string, error) {
	f.mu.Lock()
	f.signups = append(f.signups, call{activity, email})
	hook := f.signupHook
	msg, err := f.signupMsg, f.signupErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return msg, err
}

func (f *fakeAPI) Unregister(ctx context.Context, activity, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removals = append(f.removals, call{activity, email})
	return f.removeMsg, f.removeErr
}

func (f *fakeAPI) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func sampleCatalog() model.Catalog {
	return model.Catalog{
		{Name: "Chess Club", Description: "Strategy", Schedule: "Fridays", MaxParticipants: 12, Participants: []string{"michael@mergington.edu", "daniel@mergington.edu"}},
		{Name: "Gym Class", Description: "Sports", Schedule: "Mondays", MaxParticipants: 1, Participants: []string{"a@x.com", "b@x.com", "c@x.com"}},
		{Name: "Art Club", Description: "Painting", Schedule: "Thursdays", MaxParticipants: 15, Participants: []string{}},
	}
}

var accept = board.ConfirmFunc(func(context.Context, string) bool { return true })

// --- Loader ---

// TestRefresh_RendersCountsAndSpotsLeft checks every card against the catalog.
// POST: participant count = len(participants); spots left = max - count, negative allowed.
func TestRefresh_RendersCountsAndSpotsLeft(t *testing.T) {
	api := &fakeAPI{catalog: sampleCatalog()}
	b := board.New(api)

	require.NoError(t, b.Refresh(context.Background()))
	s := b.Snapshot()

	require.Len(t, s.View.Cards, 3)
	for i, a := range sampleCatalog() {
		card := s.View.Cards[i]
		assert.Equal(t, a.Name, card.Name)
		assert.Equal(t, len(a.Participants), card.ParticipantCount())
		assert.Equal(t, a.MaxParticipants-len(a.Participants), card.SpotsLeft)
		for j, p := range card.Participants {
			assert.Equal(t, board.UnregisterControl{Activity: a.Name, Email: a.Participants[j]}, p)
		}
	}
	assert.Equal(t, -2, s.View.Cards[1].SpotsLeft)
	assert.True(t, s.Loaded)
	assert.Empty(t, s.ListError)
}

func TestRefresh_MalformedParticipantsFromWire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"Chess Club": {"description": "d", "schedule": "s", "max_participants": 12},
			"Gym Class": {"description": "d", "schedule": "s", "max_participants": 30, "participants": "nope"}
		}`))
	}))
	defer srv.Close()

	b := board.New(client.New(srv.URL))
	require.NoError(t, b.Refresh(context.Background()))

	for _, card := range b.Snapshot().View.Cards {
		assert.Equal(t, 0, card.ParticipantCount(), card.Name)
	}
	assert.Equal(t, 12, b.Snapshot().View.Cards[0].SpotsLeft)
	assert.Equal(t, 30, b.Snapshot().View.Cards[1].SpotsLeft)
}

// TestRefresh_Idempotent refreshes twice with the same catalog.
// POST: identical view; no duplicated cards or options.
func TestRefresh_Idempotent(t *testing.T) {
	api := &fakeAPI{catalog: sampleCatalog()}
	b := board.New(api)

	require.NoError(t, b.Refresh(context.Background()))
	first := b.Snapshot().View
	require.NoError(t, b.Refresh(context.Background()))
	second := b.Snapshot().View

	assert.Equal(t, first, second)
	assert.Len(t, second.Cards, 3)
	require.Len(t, second.Options, 4)
	assert.Equal(t, board.SelectOption{Value: "", Label: board.PlaceholderLabel}, second.Options[0])
	assert.Equal(t, "Chess Club", second.Options[1].Value)
}

func TestRefresh_ResetsSelection(t *testing.T) {
	api := &fakeAPI{catalog: sampleCatalog(), signupErr: &client.APIError{Status: 400, Detail: "nope"}}
	b := board.New(api)
	require.NoError(t, b.Refresh(context.Background()))

	_ = b.Signup(context.Background(), "a@b.com", "Chess Club")
	assert.Equal(t, "Chess Club", b.Snapshot().Form.Activity, "failed signup keeps the selection")

	require.NoError(t, b.Refresh(context.Background()))
	assert.Equal(t, "", b.Snapshot().Form.Activity, "placeholder after rebuild")
	assert.Equal(t, "a@b.com", b.Snapshot().Form.Email, "email field is not part of the rebuild")
}

// TestRefresh_FailureKeepsOptions loads once, then fails.
// POST: list replaced by failure text; options from the last good load remain.
func TestRefresh_FailureKeepsOptions(t *testing.T) {
	api := &fakeAPI{catalog: sampleCatalog()}
	b := board.New(api)
	require.NoError(t, b.Refresh(context.Background()))
	options := b.Snapshot().View.Options

	api.mu.Lock()
	api.listErr = errors.New("connection refused")
	api.mu.Unlock()

	err := b.Refresh(context.Background())
	require.Error(t, err)
	s := b.Snapshot()
	assert.Empty(t, s.View.Cards)
	assert.Equal(t, board.LoadFailedText, s.ListError)
	assert.Equal(t, options, s.View.Options)
}

func TestRefresh_FailureBeforeFirstLoad(t *testing.T) {
	b := board.New(&fakeAPI{listErr: &client.APIError{Status: 500}})
	require.Error(t, b.Refresh(context.Background()))

	s := b.Snapshot()
	assert.False(t, s.Loaded)
	assert.Equal(t, board.LoadFailedText, s.ListError)
	assert.Equal(t, board.EmptyView().Options, s.View.Options)
}

// TestRefresh_StaleResponseDiscarded lets a newer refresh finish before an
// older one.
// POST: the older response is dropped; the view shows the newer catalog.
func TestRefresh_StaleResponseDiscarded(t *testing.T) {
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})
	older := model.Catalog{{Name: "Old", MaxParticipants: 1}}
	newer := model.Catalog{{Name: "New", MaxParticipants: 1}}

	api := &fakeAPI{listHook: func(n int) (model.Catalog, error) {
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return older, nil
		}
		return newer, nil
	}}
	b := board.New(api)

	done := make(chan error, 1)
	go func() { done <- b.Refresh(context.Background()) }()
	<-firstStarted

	require.NoError(t, b.Refresh(context.Background()))
	close(releaseFirst)
	assert.ErrorIs(t, <-done, board.ErrStaleResponse)

	s := b.Snapshot()
	require.Len(t, s.View.Cards, 1)
	assert.Equal(t, "New", s.View.Cards[0].Name)
}

// --- Signup ---

// scriptedServer answers the three endpoints with canned responses and
// counts catalog requests.
type scriptedServer struct {
	*httptest.Server
	mu         sync.Mutex
	lists      int
	mutations  []string
	status     int
	body       string
	catalogDoc string
}

func newScriptedServer(t *testing.T, status int, body string) *scriptedServer {
	t.Helper()
	s := &scriptedServer{
		status:     status,
		body:       body,
		catalogDoc: `{"Chess Club": {"description": "d", "schedule": "s", "max_participants": 12, "participants": []}}`,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet && r.URL.Path == "/activities" {
			s.lists++
			_, _ = w.Write([]byte(s.catalogDoc))
			return
		}
		s.mutations = append(s.mutations, r.Method+" "+r.URL.EscapedPath()+"?"+r.URL.RawQuery)
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *scriptedServer) counts() (int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists, append([]string(nil), s.mutations...)
}

// TestSignup_Success posts a signup that the server accepts.
// POST: form cleared; success notification with the server text; exactly one refresh.
func TestSignup_Success(t *testing.T) {
	srv := newScriptedServer(t, http.StatusOK, `{"message":"Signed up a@b.com for Chess Club"}`)
	b := board.New(client.New(srv.URL), board.WithClock(&fakeClock{}))

	require.NoError(t, b.Signup(context.Background(), "a@b.com", "Chess Club"))

	s := b.Snapshot()
	assert.Equal(t, board.Form{}, s.Form)
	assert.Equal(t, board.Notification{Text: "Signed up a@b.com for Chess Club", Kind: board.KindSuccess, Visible: true}, s.Notification)

	lists, mutations := srv.counts()
	assert.Equal(t, 1, lists)
	assert.Equal(t, []string{"POST /activities/Chess%20Club/signup?email=a%40b.com"}, mutations)
	assert.True(t, s.Loaded, "refresh completed before Signup returned")
}

// TestSignup_Rejected posts a signup the server refuses.
// POST: error notification with the server detail; no refresh.
func TestSignup_Rejected(t *testing.T) {
	srv := newScriptedServer(t, http.StatusBadRequest, `{"detail":"Already signed up"}`)
	b := board.New(client.New(srv.URL), board.WithClock(&fakeClock{}))

	err := b.Signup(context.Background(), "a@b.com", "Chess Club")
	require.Error(t, err)

	s := b.Snapshot()
	assert.Equal(t, board.Notification{Text: "Already signed up", Kind: board.KindError, Visible: true}, s.Notification)
	assert.Equal(t, board.Form{Email: "a@b.com", Activity: "Chess Club"}, s.Form)
	lists, _ := srv.counts()
	assert.Equal(t, 0, lists)
}

func TestSignup_RejectedWithoutDetail(t *testing.T) {
	srv := newScriptedServer(t, http.StatusInternalServerError, `{}`)
	b := board.New(client.New(srv.URL), board.WithClock(&fakeClock{}))

	require.Error(t, b.Signup(context.Background(), "a@b.com", "Chess Club"))
	assert.Equal(t, board.GenericErrorText, b.Snapshot().Notification.Text)
}

func TestSignup_TransportFailure(t *testing.T) {
	api := &fakeAPI{signupErr: errors.New("dial tcp: connection refused")}
	b := board.New(api, board.WithClock(&fakeClock{}))

	require.Error(t, b.Signup(context.Background(), "a@b.com", "Chess Club"))
	s := b.Snapshot()
	assert.Equal(t, board.SignupFailedText, s.Notification.Text)
	assert.Equal(t, board.KindError, s.Notification.Kind)
	assert.Equal(t, 0, api.ListCalls())
}

func TestSignup_MalformedResponseIsTransportFailure(t *testing.T) {
	srv := newScriptedServer(t, http.StatusOK, `<html>oops</html>`)
	b := board.New(client.New(srv.URL), board.WithClock(&fakeClock{}))

	require.Error(t, b.Signup(context.Background(), "a@b.com", "Chess Club"))
	assert.Equal(t, board.SignupFailedText, b.Snapshot().Notification.Text)
}

// TestSignup_SubmitReenabled covers success, rejection and transport error.
// POST: submit control enabled after each; disabled while the call runs.
func TestSignup_SubmitReenabled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"rejected", &client.APIError{Status: 400, Detail: "Already signed up"}},
		{"transport", errors.New("network down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{catalog: sampleCatalog(), signupMsg: "ok", signupErr: tt.err}
			b := board.New(api, board.WithClock(&fakeClock{}))

			var during board.State
			var concurrent error
			api.signupHook = func() {
				during = b.Snapshot()
				concurrent = b.Signup(context.Background(), "other@b.com", "Art Club")
			}

			_ = b.Signup(context.Background(), "a@b.com", "Chess Club")

			assert.True(t, during.Form.SubmitDisabled)
			assert.ErrorIs(t, concurrent, board.ErrSubmitInFlight)
			assert.False(t, b.Snapshot().Form.SubmitDisabled)
			assert.Len(t, api.signups, 1)
		})
	}
}

// --- Unregister ---

// TestUnregister_Declined declines the confirmation.
// POST: no DELETE issued; no notification; state unchanged.
func TestUnregister_Declined(t *testing.T) {
	srv := newScriptedServer(t, http.StatusOK, `{"message":"Unregistered a@b.com"}`)
	b := board.New(client.New(srv.URL), board.WithClock(&fakeClock{}))
	before := b.Snapshot()

	var prompt string
	decline := board.ConfirmFunc(func(_ context.Context, p string) bool {
		prompt = p
		return false
	})
	err := b.Unregister(context.Background(), "Chess Club", "a@b.com", decline)

	assert.ErrorIs(t, err, board.ErrNotConfirmed)
	assert.Equal(t, `Unregister a@b.com from "Chess Club"?`, prompt)
	lists, mutations := srv.counts()
	assert.Empty(t, mutations)
	assert.Equal(t, 0, lists)
	assert.Equal(t, before, b.Snapshot())
}

func TestUnregister_NilConfirmerDeclines(t *testing.T) {
	api := &fakeAPI{}
	b := board.New(api)
	assert.ErrorIs(t, b.Unregister(context.Background(), "Chess Club", "a@b.com", nil), board.ErrNotConfirmed)
	assert.Empty(t, api.removals)
}

// TestUnregister_Success confirms and the server accepts.
// POST: one DELETE, one refresh, success notification with the server text.
func TestUnregister_Success(t *testing.T) {
	srv := newScriptedServer(t, http.StatusOK, `{"message":"Unregistered a@b.com"}`)
	b := board.New(client.New(srv.URL), board.WithClock(&fakeClock{}))

	require.NoError(t, b.Unregister(context.Background(), "Chess Club", "a@b.com", accept))

	lists, mutations := srv.counts()
	assert.Equal(t, 1, lists)
	assert.Equal(t, []string{"DELETE /activities/Chess%20Club/participants?email=a%40b.com"}, mutations)
	assert.Equal(t, board.Notification{Text: "Unregistered a@b.com", Kind: board.KindSuccess, Visible: true}, b.Snapshot().Notification)
}

func TestUnregister_Rejected(t *testing.T) {
	srv := newScriptedServer(t, http.StatusNotFound, `{"detail":"Participant not found"}`)
	b := board.New(client.New(srv.URL), board.WithClock(&fakeClock{}))

	require.Error(t, b.Unregister(context.Background(), "Chess Club", "a@b.com", accept))
	lists, _ := srv.counts()
	assert.Equal(t, 0, lists)
	assert.Equal(t, "Participant not found", b.Snapshot().Notification.Text)
}

func TestUnregister_TransportFailure(t *testing.T) {
	api := &fakeAPI{removeErr: errors.New("network down")}
	b := board.New(api, board.WithClock(&fakeClock{}))

	require.Error(t, b.Unregister(context.Background(), "Chess Club", "a@b.com", accept))
	assert.Equal(t, board.UnregisterFailedText, b.Snapshot().Notification.Text)
	assert.Equal(t, 0, api.ListCalls())
}

// --- Notifications ---

// TestNotification_AutoHide shows one notification.
// POST: visible until the TTL elapses, hidden right after.
func TestNotification_AutoHide(t *testing.T) {
	clock := &fakeClock{}
	api := &fakeAPI{catalog: sampleCatalog(), signupMsg: "Signed up"}
	b := board.New(api, board.WithClock(clock))

	require.NoError(t, b.Signup(context.Background(), "a@b.com", "Chess Club"))

	clock.Advance(board.DefaultNotificationTTL - time.Millisecond)
	assert.True(t, b.Snapshot().Notification.Visible)

	clock.Advance(time.Millisecond)
	assert.False(t, b.Snapshot().Notification.Visible)
	assert.Equal(t, "Signed up", b.Snapshot().Notification.Text, "hiding keeps the text")
}

func TestNotification_CustomTTL(t *testing.T) {
	clock := &fakeClock{}
	b := board.New(&fakeAPI{removeErr: errors.New("x")}, board.WithClock(clock), board.WithNotificationTTL(time.Second))

	_ = b.Unregister(context.Background(), "Chess Club", "a@b.com", accept)
	clock.Advance(time.Second)
	assert.False(t, b.Snapshot().Notification.Visible)
}

// TestNotification_SupersededModes shows a second notification 3s after the first.
// POST: generation mode keeps the second visible when the first timer fires;
// legacy mode hides it early.
func TestNotification_SupersededModes(t *testing.T) {
	tests := []struct {
		name          string
		mode          board.NotifyMode
		visibleAfter5 bool
	}{
		{"generation", board.NotifyGeneration, true},
		{"legacy", board.NotifyLegacy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{}
			api := &fakeAPI{signupErr: &client.APIError{Status: 400, Detail: "first"}}
			b := board.New(api, board.WithClock(clock), board.WithNotifyMode(tt.mode))

			_ = b.Signup(context.Background(), "a@b.com", "Chess Club")
			clock.Advance(3 * time.Second)

			api.mu.Lock()
			api.signupErr = &client.APIError{Status: 400, Detail: "second"}
			api.mu.Unlock()
			_ = b.Signup(context.Background(), "a@b.com", "Chess Club")

			clock.Advance(2 * time.Second)
			n := b.Snapshot().Notification
			assert.Equal(t, "second", n.Text)
			assert.Equal(t, tt.visibleAfter5, n.Visible)

			clock.Advance(3 * time.Second)
			assert.False(t, b.Snapshot().Notification.Visible)
		})
	}
}

// --- Dispatch ---

func TestDispatch_RoutesActions(t *testing.T) {
	api := &fakeAPI{catalog: sampleCatalog(), signupMsg: "s", removeMsg: "u"}
	b := board.New(api, board.WithClock(&fakeClock{}))
	ctx := context.Background()

	require.NoError(t, b.Dispatch(ctx, board.SignupAction{Email: "a@b.com", Activity: "Chess Club"}, nil))
	require.NoError(t, b.Dispatch(ctx, board.UnregisterControl{Activity: "Chess Club", Email: "a@b.com"}.Action(), accept))

	assert.Equal(t, []call{{"Chess Club", "a@b.com"}}, api.signups)
	assert.Equal(t, []call{{"Chess Club", "a@b.com"}}, api.removals)
	assert.Equal(t, 2, api.ListCalls())
}

func TestDispatch_Unknown(t *testing.T) {
	b := board.New(&fakeAPI{})
	assert.ErrorIs(t, b.Dispatch(context.Background(), nil, accept), board.ErrUnknownAction)
}

func TestParseAction(t *testing.T) {
	a, err := board.ParseAction("signup", "Chess Club", "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, board.SignupAction{Email: "a@b.com", Activity: "Chess Club"}, a)

	a, err = board.ParseAction("unregister", "Chess Club", "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, board.UnregisterAction{Activity: "Chess Club", Email: "a@b.com"}, a)

	_, err = board.ParseAction("delete-everything", "", "")
	assert.ErrorIs(t, err, board.ErrUnknownAction)
}

package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/board"
	"github.com/google/uuid"
)

const sessionCookieName = "board_session"

// timeNow is a variable for testability.
var timeNow = time.Now

type session struct {
	board    *board.Board
	lastSeen time.Time
	// fresh is set after an action so the redirected page load shows the
	// state the action left behind instead of loading again.
	fresh bool
}

// SessionStore keeps one Board per browser session in memory. Sessions idle
// for longer than idle are evicted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	idle     time.Duration
	newBoard func() *board.Board
}

// NewSessionStore creates an empty store. newBoard builds the board for each
// new session.
func NewSessionStore(idle time.Duration, newBoard func() *board.Board) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		idle:     idle,
		newBoard: newBoard,
	}
}

// Len reports the number of live sessions.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// acquire returns the session's board, creating a session and setting the
// cookie when the request carries none or an unknown token. fresh reports
// and clears the post-action flag.
// POST: returned token identifies a live session
func (ss *SessionStore) acquire(w http.ResponseWriter, r *http.Request, secure bool) (b *board.Board, token string, fresh bool) {
	now := timeNow()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sweepLocked(now)

	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		if s, ok := ss.sessions[c.Value]; ok {
			s.lastSeen = now
			fresh, s.fresh = s.fresh, false
			return s.board, c.Value, fresh
		}
	}

	token = uuid.New().String()
	s := &session{board: ss.newBoard(), lastSeen: now}
	ss.sessions[token] = s
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s.board, token, false
}

// markFresh flags the session so the next page load skips its refresh.
func (ss *SessionStore) markFresh(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.sessions[token]; ok {
		s.fresh = true
	}
}

func (ss *SessionStore) sweepLocked(now time.Time) {
	if ss.idle <= 0 {
		return
	}
	for token, s := range ss.sessions {
		if now.Sub(s.lastSeen) > ss.idle {
			delete(ss.sessions, token)
		}
	}
}

// Package web serves the activity board as server-rendered HTML. Each
// browser session owns its own board.Board; forms post to one delegated
// action endpoint and redirect back to the page.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/board"
	"github.com/Shivanand-hulikatti/activity-board/internal/handler"
	"github.com/Shivanand-hulikatti/activity-board/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// mdRenderer renders activity descriptions. Raw HTML in the input is
// escaped (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var templates = template.Must(
	template.New("").Funcs(template.FuncMap{"markdown": renderMarkdown}).ParseFS(templateFS, "templates/*.html"),
)

// Options configures the board web server.
type Options struct {
	API          board.API
	BoardOptions []board.Option
	// CSRFKey enables CSRF protection when non-nil. It must be 32 bytes.
	CSRFKey        []byte
	TrustedOrigins []string
	Secure         bool
	SessionIdle    time.Duration
	Logger         *slog.Logger
}

// Server renders boards for browser sessions.
type Server struct {
	sessions *SessionStore
	secure   bool
	logger   *slog.Logger
}

// NewServer creates a Server from opts.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	boardOpts := append([]board.Option{board.WithLogger(logger)}, opts.BoardOptions...)
	return &Server{
		sessions: NewSessionStore(opts.SessionIdle, func() *board.Board {
			return board.New(opts.API, boardOpts...)
		}),
		secure: opts.Secure,
		logger: logger,
	}
}

// NewRouter builds the board web router.
func NewRouter(opts Options) http.Handler {
	s := NewServer(opts)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", handler.HealthCheck)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		if opts.CSRFKey != nil {
			r.Use(middleware.CSRF(opts.CSRFKey, opts.Secure, opts.TrustedOrigins))
		}
		r.Get("/", s.Index)
		r.Post("/actions", s.Action)
	})

	return r
}

// ─── Page data ──────────────────────────────────────────────────────────────

type pageData struct {
	State     board.State
	CSRFField template.HTML
}

type confirmData struct {
	Prompt    string
	Activity  string
	Email     string
	CSRFField template.HTML
}

// ─── Handlers ───────────────────────────────────────────────────────────────

// Index renders the board. Every page load reloads the catalog except the
// one directly following an action.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	b, _, fresh := s.sessions.acquire(w, r, s.secure)

	if !fresh {
		if err := b.Refresh(backgroundCtx(r)); err != nil && !errors.Is(err, board.ErrStaleResponse) {
			s.logger.Warn("board_load_failed", "error", err)
		}
	}

	s.render(w, "index.html", pageData{State: b.Snapshot(), CSRFField: csrf.TemplateField(r)})
}

// Action decodes the posted control into a board action and dispatches it.
// An unregister without a confirm answer renders the confirmation page.
func (s *Server) Action(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	action, err := board.ParseAction(r.PostForm.Get("action"), r.PostForm.Get("activity"), r.PostForm.Get("email"))
	if err != nil {
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	b, token, _ := s.sessions.acquire(w, r, s.secure)

	var confirm board.Confirmer
	if u, ok := action.(board.UnregisterAction); ok {
		switch r.PostForm.Get("confirm") {
		case "":
			s.render(w, "confirm.html", confirmData{
				Prompt:    board.ConfirmPrompt(u.Activity, u.Email),
				Activity:  u.Activity,
				Email:     u.Email,
				CSRFField: csrf.TemplateField(r),
			})
			return
		case "yes":
			confirm = answer(true)
		default:
			confirm = answer(false)
		}
	}

	if err := b.Dispatch(backgroundCtx(r), action, confirm); err != nil {
		switch {
		case errors.Is(err, board.ErrNotConfirmed):
			s.logger.Debug("unregister_declined")
		case errors.Is(err, board.ErrSubmitInFlight):
			s.logger.Info("signup_in_flight")
		default:
			s.logger.Debug("action_failed", "error", err)
		}
	}

	s.sessions.markFresh(token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ─── Helper utilities ───────────────────────────────────────────────────────

// answer is a Confirmer with a fixed reply taken from the confirmation form.
type answer bool

func (a answer) Confirm(context.Context, string) bool { return bool(a) }

// backgroundCtx keeps request values but detaches from client disconnects:
// an action the user started runs to completion.
func backgroundCtx(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template_render_failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Package server serves the employee screens. Every request builds a fresh
// document from the page shell, lets the router and controllers act on it,
// then writes the result or follows the navigation they asked for.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/JoshUrdnb/Billed/api"
	"github.com/JoshUrdnb/Billed/auth"
	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/controller"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/localstore"
	"github.com/JoshUrdnb/Billed/metrics"
	"github.com/JoshUrdnb/Billed/middleware"
	"github.com/JoshUrdnb/Billed/router"
	"github.com/JoshUrdnb/Billed/routes"
	"github.com/JoshUrdnb/Billed/session"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/JoshUrdnb/Billed/views"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

// maxUpload caps a whole bill upload, receipt included, at 10 MB.
const maxUpload = 10 << 20

type Deps struct {
	Bills    bill.Repository
	Users    controller.Authenticator
	Sessions session.Repository
	Tokens   *auth.JWTManager
	Events   eventlogger.Sink

	// BillsAPIURL points the screens at a remote bills API. When empty they
	// read Bills directly.
	BillsAPIURL     string
	BillsAPITimeout time.Duration

	SecureCookies bool
	Metrics       bool
}

type Server struct {
	deps   Deps
	pages  *router.Router
	client *http.Client
}

func New(deps Deps) *Server {
	if deps.Events == nil {
		deps.Events = eventlogger.Discard
	}
	timeout := deps.BillsAPITimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &Server{deps: deps, client: &http.Client{Timeout: timeout}}
	s.pages = router.New(
		router.Route{
			Path: routes.Login,
			View: func() (string, error) { return views.Login("", "") },
			Controller: func(env controller.Env) controller.Controller {
				return controller.Login(env, deps.Users, sessionStarter{repo: deps.Sessions}, deps.Tokens)
			},
		},
		router.Route{
			Path: routes.Bills,
			View: views.Loading,
			Controller: func(env controller.Env) controller.Controller {
				return controller.Bills(env)
			},
		},
		router.Route{
			Path: routes.NewBill,
			View: views.NewBill,
			Controller: func(env controller.Env) controller.Controller {
				return controller.NewBill(env)
			},
		},
	)
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if s.deps.Metrics {
		r.Use(metrics.Middleware)
		r.Handle("/metrics", metrics.Handler())
	}

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(views.Static())))
	r.Get("/health", s.health)
	r.Mount("/api", api.New(s.deps.Bills, s.deps.Users, s.deps.Tokens, s.deps.Events).Routes())

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(s.deps.Sessions))

		r.Get(routes.Login, s.home)
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireEmployee(routes.Login))

			r.Get(routes.Bills, s.bills)
			r.Get(routes.Export, s.export)
			r.Get(routes.Bills+"/{id}/receipt", s.receipt)
			r.Get(routes.NewBill, s.newBill)
			r.Post(routes.NewBill, s.submitBill)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.deps.Events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.HealthRequested),
		eventlogger.WithData(map[string]string{"message": "ok"}),
	))
	w.Write([]byte("ok"))
}

type startedKey struct{}

// sessionStarter opens sessions on behalf of the login screen. The session it
// creates is left in the request's slot so the handler can hand its cookie to
// the browser.
type sessionStarter struct {
	repo session.Repository
}

func (st sessionStarter) Start(ctx context.Context, u *user.User) (localstore.Store, error) {
	sess, err := st.repo.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if slot, ok := ctx.Value(startedKey{}).(**session.Session); ok {
		*slot = sess
	}
	return st.repo.Items(sess.ID), nil
}

// Package httpapi is the HTTP surface of the demo application: the auth
// endpoints backed by goSession, the feature, household and todo APIs, the
// metrics endpoint and the single-page client.
package httpapi

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/catalog"
	"github.com/MrEthical07/goSession/middleware"
)

// Options wires an API. Engine is required; nil catalogs are replaced by
// freshly seeded ones.
type Options struct {
	Engine     *goSession.Engine
	StaticDir  string
	Households *catalog.Households
	Todos      *catalog.Todos
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// API serves the application routes.
type API struct {
	engine     *goSession.Engine
	static     string
	households *catalog.Households
	todos      *catalog.Todos
	metrics    http.Handler
}

// New returns an API over opts. It does not start serving.
func New(opts Options) *API {
	a := &API{
		engine:     opts.Engine,
		static:     opts.StaticDir,
		households: opts.Households,
		todos:      opts.Todos,
		metrics:    opts.Metrics,
	}
	if a.households == nil {
		a.households = catalog.NewHouseholds(nil)
	}
	if a.todos == nil {
		a.todos = catalog.NewTodos()
	}
	return a
}

// Handler returns the routes wrapped in request ids, access logging, panic
// recovery and session management, outermost first.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.Routes()
	h = middleware.Sessions(a.engine)(h)
	h = middleware.Recover(a.engine)(h)
	h = middleware.AccessLog(a.engine)(h)
	h = middleware.RequestID(a.engine)(h)
	return h
}

// Routes returns the bare route table. It expects Sessions to run first.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	gate := middleware.RequireUser(a.engine)
	protect := func(fn http.HandlerFunc) http.Handler { return gate(fn) }

	mux.HandleFunc("POST /api/auth/login", a.login)
	mux.HandleFunc("GET /api/auth/logout", a.logout)
	mux.Handle("GET /api/auth/me", protect(a.me))
	mux.HandleFunc("GET /api/auth/status", a.status)

	mux.HandleFunc("GET /api/health", a.health)

	mux.HandleFunc("GET /api/features", a.listFeatures)
	mux.Handle("GET /api/features/my-features", protect(a.myFeatures))
	mux.HandleFunc("GET /api/features/{featureId}", a.getFeature)

	mux.Handle("GET /api/households", protect(a.listHouseholds))
	mux.Handle("GET /api/households/owner/{ownerId}", protect(a.householdsByOwner))
	mux.Handle("GET /api/households/{id}", protect(a.getHousehold))
	mux.Handle("POST /api/households", protect(a.createHousehold))
	mux.Handle("PUT /api/households/{id}", protect(a.updateHousehold))
	mux.Handle("DELETE /api/households/{id}", protect(a.deleteHousehold))

	mux.Handle("GET /api/todos", protect(a.listTodos))
	mux.Handle("POST /api/todos", protect(a.createTodo))
	mux.Handle("GET /api/todos/{id}", protect(a.getTodo))
	mux.Handle("PUT /api/todos/{id}", protect(a.updateTodo))
	mux.Handle("DELETE /api/todos/{id}", protect(a.deleteTodo))

	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics)
	}

	mux.HandleFunc("/api/", routeNotFound)

	mux.HandleFunc("GET /{$}", a.page("login"))
	mux.HandleFunc("GET /login", a.page("login"))
	mux.HandleFunc("GET /home", a.page("home"))
	mux.Handle("/", a.staticFiles())

	return mux
}

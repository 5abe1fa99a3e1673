// Package httpapi exposes the storefront over REST: the token lifecycle,
// the guarded catalog and shop surfaces, and the purchase endpoint.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kamideathless/books-shop/internal/auth"
	"github.com/kamideathless/books-shop/internal/catalog"
	"github.com/kamideathless/books-shop/internal/obs"
	"github.com/kamideathless/books-shop/internal/purchase"
)

// Options carries the collaborators the API serves with.
type Options struct {
	Tokens    *auth.Service
	Users     catalog.UserStore
	Books     catalog.BookStore
	Shop      catalog.ShopStore
	Purchases *purchase.Orchestrator

	// Ready reports backend readiness for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error

	Version string

	RatePerSec   float64
	RateBurst    int
	MaxBodyBytes int64

	// SecureCookies marks auth cookies Secure. Disable only for local
	// plain-HTTP development.
	SecureCookies bool
}

// API is the HTTP boundary of the service.
type API struct {
	router *chi.Mux

	tokens    *auth.Service
	users     catalog.UserStore
	books     catalog.BookStore
	shop      catalog.ShopStore
	purchases *purchase.Orchestrator

	ready         func(ctx context.Context) error
	version       string
	secureCookies bool
}

// New wires the router, middleware chain and all route handlers.
func New(opts Options) *API {
	a := &API{
		tokens:        opts.Tokens,
		users:         opts.Users,
		books:         opts.Books,
		shop:          opts.Shop,
		purchases:     opts.Purchases,
		ready:         opts.Ready,
		version:       opts.Version,
		secureCookies: opts.SecureCookies,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return obs.Instrument(next, chiRoutePattern)
	})
	r.Use(LoggingJSON)
	r.Use(SecurityHeaders)
	r.Use(RateLimit(opts.RatePerSec, opts.RateBurst, 10*time.Minute))
	r.Use(MaxBody(opts.MaxBodyBytes))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/v1/info", a.handleInfo)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1/users", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)
		r.Post("/logout", a.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)
			r.With(a.adminOnly).Get("/", a.handleListUsers)
			r.Get("/{userID}", a.handleGetUser)
		})
	})

	r.Route("/v1/books", func(r chi.Router) {
		r.Get("/", a.handleListBooks)
		r.Get("/search", a.handleSearchBooks)
		r.Get("/{bookID}", a.handleGetBook)
		r.Get("/{bookID}/reviews", a.handleListReviews)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)
			r.With(a.adminOnly).Post("/", a.handleCreateBook)
			r.With(a.adminOnly).Patch("/{bookID}", a.handleUpdateBook)
			r.With(a.adminOnly).Delete("/{bookID}", a.handleDeleteBook)
			r.Post("/{bookID}/reviews", a.handleCreateReview)
		})
	})

	r.Route("/v1/shop", func(r chi.Router) {
		r.Get("/items", a.handleListItems)
		r.Get("/items/{itemID}", a.handleGetItem)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)
			r.With(a.adminOnly).Post("/items", a.handleCreateItem)
			r.With(a.adminOnly).Patch("/items/{itemID}", a.handleUpdateItem)
			r.With(a.adminOnly).Delete("/items/{itemID}", a.handleDeleteItem)
			r.Post("/purchase", a.handlePurchase)
			r.With(a.adminOnly).Get("/transactions/{txID}", a.handleGetTransaction)
		})
	})

	a.router = r
	return a
}

// Handler returns the root handler for the HTTP server.
func (a *API) Handler() http.Handler { return a.router }

func chiRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "backend not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "books-shop",
		"version": a.version,
	})
}

// DBReady adapts a SQL pool into a readiness probe.
func DBReady(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

// Package handler implements the HTTP handlers for the storefront API.
// Handlers are methods on Server and are split into domain-specific files
// (health.go, basket.go, export.go); Routes wires them onto a chi router.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/basket"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/export"
)

// BasketServicer defines the cart and wishlist operations the handlers use.
// Defining the interface here lets handler tests inject a mock.
type BasketServicer interface {
	Get(ctx context.Context, kind domain.Kind, owner string) (domain.Basket, error)
	Add(ctx context.Context, kind domain.Kind, owner string, item domain.LineItem, mode basket.Mode) (domain.Basket, error)
	Increment(ctx context.Context, kind domain.Kind, owner string, item domain.LineItem) (domain.Basket, error)
	Decrement(ctx context.Context, kind domain.Kind, owner string, item domain.LineItem) (domain.Basket, error)
	Remove(ctx context.Context, kind domain.Kind, owner string, item domain.LineItem) (domain.Basket, error)
	Clear(ctx context.Context, kind domain.Kind, owner string) (domain.Basket, error)
	Replace(ctx context.Context, kind domain.Kind, owner string, items []domain.LineItem) (domain.Basket, error)
}

// ExportServicer defines the export operations the handlers use.
type ExportServicer interface {
	Format(records []map[string]any, columns []export.Column, formatters map[string]export.Formatter) []export.Row
	Flatten(records []map[string]any) []export.Row
	Resources() []string
	ExportResource(ctx context.Context, token, resource string) ([]export.Row, error)
	Filename(resource string, format domain.ExportFormat) string
}

// Options carries the cookie and middleware settings Routes needs.
type Options struct {
	// TokenCookie names the cookie holding the backend bearer token.
	TokenCookie string
	// SecureCookies marks cookies set by the handlers as Secure.
	SecureCookies bool
	// Session issues and reads the shopper session for basket routes.
	Session func(http.Handler) http.Handler
	// OpenAPI is served at /openapi.yaml when non-empty.
	OpenAPI []byte
	Logger  *slog.Logger
}

// Server holds the dependencies shared by every handler.
type Server struct {
	baskets BasketServicer
	exports ExportServicer
	proxy   http.Handler
	opts    Options
	log     *slog.Logger
}

// NewServer constructs the Server. proxy may be nil, in which case no proxy
// route is mounted.
func NewServer(baskets BasketServicer, exports ExportServicer, proxy http.Handler, opts Options) *Server {
	if opts.TokenCookie == "" {
		opts.TokenCookie = "token"
	}
	if opts.Session == nil {
		opts.Session = func(next http.Handler) http.Handler { return next }
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{baskets: baskets, exports: exports, proxy: proxy, opts: opts, log: log}
}

// Routes returns the router for every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	if len(s.opts.OpenAPI) > 0 {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.opts.Session)
		r.Route("/cart", s.basketRoutes(domain.KindCart))
		r.Route("/wishlist", s.basketRoutes(domain.KindWishlist))
	})

	r.Get("/export", s.ListExports)
	r.Post("/export", s.PostExport)
	r.Get("/export/{resource}", s.GetExport)

	if s.proxy != nil {
		r.Handle("/api/proxy/*", s.proxy)
	}
	return r
}

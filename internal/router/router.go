package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/insurezeal/backoffice/internal/api/middlewares"
	"github.com/insurezeal/backoffice/internal/service/config"
)

type CustomRouter struct {
	router *chi.Mux
	logger *slog.Logger
	cfg    *config.Config
}

func New(cfg *config.Config, log *slog.Logger) *CustomRouter {
	router := &CustomRouter{
		router: chi.NewRouter(),
		logger: log,
		cfg:    cfg,
	}

	return router
}

type AgentsHandler interface {
	RegisterAgent(w http.ResponseWriter, r *http.Request)
	GetBalance(w http.ResponseWriter, r *http.Request)
}

type TransactionsHandler interface {
	CreateTransaction(w http.ResponseWriter, r *http.Request)
	GetTransaction(w http.ResponseWriter, r *http.Request)
	ListTransactions(w http.ResponseWriter, r *http.Request)
	PatchTransaction(w http.ResponseWriter, r *http.Request)
	CommitTransaction(w http.ResponseWriter, r *http.Request)
}

type HealthHandler interface {
	Ping(w http.ResponseWriter, r *http.Request)
}

type Handler interface {
	AgentsHandler
	TransactionsHandler
	HealthHandler
}

func (cr *CustomRouter) SetRouter(h Handler) {
	cr.router.Use(middlewares.Logging(cr.logger))

	cr.router.Route("/api", func(r chi.Router) {
		r.Route("/agents", func(r chi.Router) {
			r.With(middleware.AllowContentType("application/json")).
				Post("/", h.RegisterAgent)
			r.Get("/{code}/balance", h.GetBalance)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.With(middleware.AllowContentType("application/json")).
				Post("/", h.CreateTransaction)
			r.Get("/", h.ListTransactions)

			r.With(middleware.AllowContentType("application/json")).
				Patch("/{id}", h.PatchTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Post("/{id}/commit", h.CommitTransaction)
		})
	})
	cr.router.Get("/ping", h.Ping)

	cr.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w,
			http.StatusText(http.StatusMethodNotAllowed),
			http.StatusMethodNotAllowed)
	})
}

func (cr *CustomRouter) GetRouter() *chi.Mux {
	return cr.router
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unrolled/secure"

	"github.com/MrJamesThe3rd/conciliacao/internal/http/auth"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/category"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/respond"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/transaction"
)

type Options struct {
	AllowedOrigins []string
	JWTSecret      string
	Timeout        time.Duration
	Development    bool
}

func New(
	opts Options,
	statementsV1 *statement.Handler,
	reconciliationV1 *reconciliation.Handler,
	transactionsV1 *transaction.Handler,
	categoriesV1 *category.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      opts.Development,
	}).Handler)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", auth.ActorHeader},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Actor(opts.JWTSecret))

		r.Route("/statements", statementsV1.Routes)
		r.Route("/reconciliation", reconciliationV1.Routes)
		r.Route("/transactions", transactionsV1.Routes)
		r.Route("/categories", categoriesV1.Routes)
	})

	return router
}

// Package httpapi assembles the submission API router.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"manimq/internal/httpapi/handlers"
	"manimq/internal/httpkit"
	"manimq/internal/pkg/logger"
	"manimq/internal/pkg/middleware"
	"manimq/internal/queue"
)

type Deps struct {
	Queue          *queue.Client
	Log            *logger.Logger
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("api")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recover(log))

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(httpkit.CORS(origins))

	h := handlers.New(handlers.Deps{
		Queue: d.Queue,
		Log:   log,
	})

	r.Get("/health", h.Health)

	r.Post("/render", h.PostRender)
	r.Get("/task/{taskID}", h.GetTask)

	return r
}

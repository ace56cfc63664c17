package v1

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kurochkinivan/tddf_pipeline/internal/config"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(log *slog.Logger, cfg config.HTTP, svc Services, opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			Handler:      NewRouter(NewHandler(log, svc, opts)),
		},
	}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/uploader", func(r chi.Router) {
		r.Get("/ping", h.Ping)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAPIKey)

			r.Get("/status", h.UploaderStatus)
			r.Post("/upload", h.UploadFile)
			r.Post("/start", h.StartUpload)
			r.Post("/{id}/upload", h.UploadContent)
			r.Post("/{id}/upload-chunk", h.UploadChunk)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.RequireAPIKey)

		r.Get("/backlog/status", h.BacklogStatus)

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", h.CreateUpload)
			r.Get("/", h.ListUploads)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetUpload)
				r.Delete("/", h.DeleteUpload)
				r.Put("/content", h.PutContent)
				r.Post("/phase/{target}", h.AdvancePhase)
				r.Post("/identify", h.Identify)
				r.Post("/encode", h.Encode)
				r.Post("/cancel-encoding", h.CancelEncoding)
				r.Post("/set-previous-level", h.SetPreviousLevel)
				r.Post("/reprocess", h.Reprocess)
				r.Post("/fail", h.Fail)
				r.Get("/records", h.GetRecords)
				r.Get("/rows.csv", h.ExportRows)
				r.Get("/report", h.GetReport)
			})
		})
	})

	return r
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

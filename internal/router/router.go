package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"evidence-explorer/internal/config"
	"evidence-explorer/internal/handler"
	"evidence-explorer/internal/middleware"
)

const sessionPath = "/sessions/{session_id}"

// transferIdleTimeout bounds how long an upload or thumbnail may stall.
const transferIdleTimeout = time.Minute

type Handlers struct {
	Health     *handler.HealthHandler
	Session    *handler.SessionHandler
	Upload     *handler.UploadHandler
	Properties *handler.PropertiesHandler
	Preview    *handler.PreviewHandler
	Events     *handler.EventsHandler
	// Audit is nil when no audit database is configured.
	Audit *handler.AuditHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.UploadRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(authMiddleware.RequireAuth)

		// Long-lived routes; http.TimeoutHandler would buffer them or break
		// the WebSocket hijack.
		api.Group(func(stream chi.Router) {
			stream.Use(middleware.TransferTimeout(cfg.TransferTimeout, transferIdleTimeout))
			stream.Post(sessionPath+"/uploads", h.Upload.Upload)
			stream.Get(sessionPath+"/preview/thumbnail", h.Preview.Thumbnail)
		})
		api.Get(sessionPath+"/ws", h.Events.Serve)

		api.Group(func(rest chi.Router) {
			rest.Use(middleware.Timeout(cfg.RequestTimeout))

			rest.Post("/sessions", h.Session.Create)
			rest.Delete(sessionPath, h.Session.Close)
			rest.Put(sessionPath+"/container", h.Session.SetContainer)
			rest.Get(sessionPath+"/view", h.Session.View)
			rest.Put(sessionPath+"/folder", h.Session.SetFolder)
			rest.Put(sessionPath+"/sort", h.Session.SetSort)
			rest.Put(sessionPath+"/expanded", h.Session.SetExpanded)
			rest.Post(sessionPath+"/pages/next", h.Session.NextPage)
			rest.Post(sessionPath+"/pages/previous", h.Session.PreviousPage)
			rest.Post(sessionPath+"/refresh", h.Session.Refresh)
			rest.Post(sessionPath+"/selection/toggle", h.Session.Toggle)
			rest.Post(sessionPath+"/selection/all", h.Session.SelectAll)
			rest.Delete(sessionPath+"/selection", h.Session.DeleteSelection)
			rest.Get(sessionPath+"/uploads/{batch_id}", h.Upload.Batch)
			rest.Post(sessionPath+"/uploads/{batch_id}/resolutions", h.Upload.Resolve)
			rest.Get(sessionPath+"/properties", h.Properties.Get)
			rest.Put(sessionPath+"/properties", h.Properties.Save)
			rest.Post(sessionPath+"/properties/keys", h.Properties.AddKey)
			rest.Get(sessionPath+"/preview", h.Preview.Preview)

			if h.Audit != nil {
				rest.With(authMiddleware.RequireRoles("auditor", "admin")).Get("/audit", h.Audit.List)
			}
		})
	})

	return r
}

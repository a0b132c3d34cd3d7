package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wozlab/woz-relay/internal/config"
	authhandler "github.com/wozlab/woz-relay/internal/handler/auth"
	sessionhandler "github.com/wozlab/woz-relay/internal/handler/session"
	wshandler "github.com/wozlab/woz-relay/internal/handler/ws"
	middlewarePkg "github.com/wozlab/woz-relay/internal/middleware"
	"github.com/wozlab/woz-relay/internal/service/relay"
	sessionstore "github.com/wozlab/woz-relay/internal/store/session"
	"github.com/wozlab/woz-relay/internal/telemetry"
	"github.com/wozlab/woz-relay/pkg/utils"
)

// NewRouter wires HTTP routes to core services. Health and login stay open;
// everything else sits behind the password gate when one is configured.
func NewRouter(cfg *config.Config, store *sessionstore.Store, relaySvc *relay.Service, metrics *telemetry.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.FrontendOrigin))

	authHandler := authhandler.New(cfg.Auth)
	sessionHandler := sessionhandler.New(store, metrics)
	wsHandler := wshandler.New(relaySvc, metrics)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	authHandler.RegisterRoutes(r)

	r.Group(func(gated chi.Router) {
		gated.Use(authHandler.Middleware)
		sessionHandler.RegisterRoutes(gated)
		wsHandler.RegisterRoutes(gated)
	})

	return r
}

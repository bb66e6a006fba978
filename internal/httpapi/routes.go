package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/lol-draft-rooms/internal/catalog"
	"github.com/DoyleJ11/lol-draft-rooms/internal/hub"
	"github.com/DoyleJ11/lol-draft-rooms/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(h *hub.Hub, cat *catalog.Catalog, wsOpts ws.Options, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/rooms", ListRooms(h))
	r.Get("/champions", ListChampions(cat))
	r.Get("/ws", ws.Handler(h, wsOpts, log.Named("ws")))
	return r
}

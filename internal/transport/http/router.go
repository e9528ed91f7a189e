package http

import (
	"net/http"
	"time"

	httpmw "github.com/PeterKahenya/rapt/internal/transport/http/middleware"
	"github.com/PeterKahenya/rapt/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, auth httpmw.Authenticator, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint: handshake (authn/authz/membership) делает сам ws-сервер
	r.Get("/ws/rooms/{id}", wsServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(auth))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Post("/rooms", h.CreateRoom)
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

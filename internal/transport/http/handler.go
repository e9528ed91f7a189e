package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/PeterKahenya/rapt/internal/domain"
	"github.com/PeterKahenya/rapt/internal/service"
	httpmw "github.com/PeterKahenya/rapt/internal/transport/http/middleware"
)

const permCreateChatrooms = "create_chatrooms"

type Handler struct {
	authSvc *service.AuthService
	roomSvc *service.RoomService
}

func NewHandler(auth *service.AuthService, room *service.RoomService) *Handler {
	return &Handler{authSvc: auth, roomSvc: room}
}

type CreateRoomRequest struct {
	Members []string `json:"members"`
}

// RoomItem — наружу уходит durable id, socket-ключ не отдаётся никогда.
type RoomItem struct {
	ID        string    `json:"id"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user := httpmw.UserFromCtx(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "not authenticated"})
		return
	}
	allowed, err := h.authSvc.Authorize(r.Context(), user, permCreateChatrooms)
	if err != nil {
		slog.Error("handler.CreateRoom.Authorize:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	if !allowed {
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not authorized"})
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), req.Members)
	if err != nil {
		if errors.Is(err, domain.ErrTooFewMembers) || errors.Is(err, domain.ErrDuplicateMember) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, RoomItem{
		ID:        room.ID,
		Members:   room.MemberIDs,
		CreatedAt: room.CreatedAt,
	})
}

package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"party-service/internal/domain"
	"party-service/internal/middleware"
	"party-service/internal/usecase"
	"party-service/pkg/response"
	"party-service/pkg/xerrors"
)

type NotificationHandler struct {
	notifs *usecase.NotificationUsecase
	users  *usecase.UserUsecase
}

func NewNotificationHandler(notifs *usecase.NotificationUsecase, users *usecase.UserUsecase) *NotificationHandler {
	return &NotificationHandler{notifs: notifs, users: users}
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	limit, offset := pagination(r)
	notifs, err := h.notifs.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, notifs)
}

func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	limit, offset := pagination(r)
	notifs, err := h.notifs.ListUnread(r.Context(), userID, limit, offset)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, notifs)
}

func (h *NotificationHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	count, err := h.notifs.CountUnread(r.Context(), userID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.notifs.MarkAsRead(r.Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.Error(w, http.StatusNotFound, "notification not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.Error(w, http.StatusBadRequest, err.Error())
		default:
			response.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "read"})
}

type registerTokenRequest struct {
	Token string `json:"token"`
}

func (h *NotificationHandler) RegisterFCMToken(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		response.Error(w, http.StatusBadRequest, "token required")
		return
	}
	if err := h.users.RegisterToken(r.Context(), userID, req.Token); err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

func (h *NotificationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	settings, err := h.users.GetSettings(r.Context(), userID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, settings)
}

func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var settings domain.NotificationSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid input")
		return
	}
	if err := h.users.UpdateSettings(r.Context(), userID, settings); err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, settings)
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"party-service/internal/middleware"
	"party-service/internal/usecase"
	"party-service/pkg/response"
	"party-service/pkg/xerrors"
)

type JoinRequestHandler struct {
	requests *usecase.JoinRequestUsecase
}

func NewJoinRequestHandler(requests *usecase.JoinRequestUsecase) *JoinRequestHandler {
	return &JoinRequestHandler{requests: requests}
}

type createJoinRequest struct {
	PartyID string `json:"party_id"`
}

func (h *JoinRequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req createJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PartyID == "" {
		response.Error(w, http.StatusBadRequest, "party_id required")
		return
	}

	jr, err := h.requests.Create(r.Context(), req.PartyID, userID)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, jr)
}

func (h *JoinRequestHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.requests.Accept(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeRequestError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *JoinRequestHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.requests.Decline(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeRequestError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (h *JoinRequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.requests.Cancel(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeRequestError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

func (h *JoinRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	reqs, err := h.requests.ListPendingByParty(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, reqs)
}

func writeRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrRequestNotFound), errors.Is(err, xerrors.ErrPartyNotFound), errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrNotLeader), errors.Is(err, xerrors.ErrForbidden):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, xerrors.ErrRequestResolved),
		errors.Is(err, xerrors.ErrDuplicateRequest),
		errors.Is(err, xerrors.ErrAlreadyMember),
		errors.Is(err, xerrors.ErrPartyEnded),
		errors.Is(err, xerrors.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, xerrors.ErrInvalidInput), errors.Is(err, xerrors.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, err.Error())
	}
}

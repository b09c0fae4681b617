package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"party-service/internal/middleware"
	"party-service/internal/usecase"
	"party-service/pkg/response"
	"party-service/pkg/xerrors"
)

type PartyHandler struct {
	parties *usecase.PartyUsecase
	chats   *usecase.ChatUsecase
}

func NewPartyHandler(parties *usecase.PartyUsecase, chats *usecase.ChatUsecase) *PartyHandler {
	return &PartyHandler{parties: parties, chats: chats}
}

type createPartyRequest struct {
	Departure     string    `json:"departure"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
}

func (h *PartyHandler) CreateParty(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req createPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid input")
		return
	}
	if req.Departure == "" || req.Destination == "" {
		response.Error(w, http.StatusBadRequest, "departure and destination required")
		return
	}

	party, err := h.parties.Create(r.Context(), userID, req.Departure, req.Destination, req.DepartureTime)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusCreated, party)
}

func (h *PartyHandler) GetParty(w http.ResponseWriter, r *http.Request) {
	party, err := h.parties.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writePartyError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, party)
}

func (h *PartyHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	party, err := h.parties.ToggleStatus(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writePartyError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, party)
}

type confirmArrivalRequest struct {
	Fare         int64    `json:"fare"`
	SplitMembers []string `json:"split_members"`
}

func (h *PartyHandler) ConfirmArrival(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req confirmArrivalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid input")
		return
	}

	party, err := h.parties.ConfirmArrival(r.Context(), chi.URLParam(r, "id"), userID, req.Fare, req.SplitMembers)
	if err != nil {
		writePartyError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, party)
}

func (h *PartyHandler) MarkSettled(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	party, err := h.parties.MarkSettled(r.Context(), chi.URLParam(r, "id"), userID, chi.URLParam(r, "memberId"))
	if err != nil {
		writePartyError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, party)
}

func (h *PartyHandler) EndParty(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.parties.End(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writePartyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PartyHandler) DisbandParty(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.parties.Disband(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writePartyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PartyHandler) LeaveParty(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.parties.Leave(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writePartyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PartyHandler) KickMember(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := h.parties.Kick(r.Context(), chi.URLParam(r, "id"), userID, chi.URLParam(r, "memberId")); err != nil {
		writePartyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func (h *PartyHandler) PostChatMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		response.Error(w, http.StatusBadRequest, "invalid input")
		return
	}

	msg, err := h.chats.PostMessage(r.Context(), chi.URLParam(r, "id"), userID, req.Content)
	if err != nil {
		writePartyError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, msg)
}

func (h *PartyHandler) ListChatMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	limit, offset := pagination(r)
	msgs, err := h.chats.ListMessages(r.Context(), chi.URLParam(r, "id"), userID, limit, offset)
	if err != nil {
		writePartyError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, msgs)
}

func writePartyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrPartyNotFound), errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, "party not found")
	case errors.Is(err, xerrors.ErrNotLeader), errors.Is(err, xerrors.ErrForbidden):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, xerrors.ErrInvalidTransition),
		errors.Is(err, xerrors.ErrPartyEnded),
		errors.Is(err, xerrors.ErrSettlementFrozen),
		errors.Is(err, xerrors.ErrAlreadySettled),
		errors.Is(err, xerrors.ErrLeaderCannotLeave),
		errors.Is(err, xerrors.ErrAlreadyMember),
		errors.Is(err, xerrors.ErrNotMember):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, xerrors.ErrEmptySplit),
		errors.Is(err, xerrors.ErrSettlementMissing),
		errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, err.Error())
	}
}

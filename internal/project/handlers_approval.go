package project

import (
	"net/http"

	"github.com/fibertrail/fibertrail/internal/platform/httpx"
)

type decisionRequest struct {
	Comments *string `json:"comments"`
}

func (h *Handler) approvePnl(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pnlID, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req decisionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.ApprovePnl(r.Context(), id, pnlID, req.Comments)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

func (h *Handler) rejectPnl(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pnlID, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req decisionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	var comments string
	if req.Comments != nil {
		comments = *req.Comments
	}
	proj, err := h.service.RejectPnl(r.Context(), id, pnlID, comments)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

func (h *Handler) reviewPnl(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pnlID, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req decisionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.ReviewPnl(r.Context(), id, pnlID, req.Comments)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

func (h *Handler) listPendingPnls(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pnls, err := h.service.ListPendingPnls(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]pnlResponse, 0, len(pnls))
	for _, p := range pnls {
		out = append(out, toPnlResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) initiateBilling(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.InitiateBilling(r.Context(), id, pid)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

func (h *Handler) completeBilling(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.CompleteBilling(r.Context(), id, pid)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

func (h *Handler) listDeletionRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	reqs, err := h.service.ListDeletionRequests(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]deletionResponse, 0, len(reqs))
	for _, d := range reqs {
		out = append(out, toDeletionResponse(d))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) approveDeletion(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	reqID, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	if err := h.service.ApproveDeletion(r.Context(), id, reqID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) rejectDeletion(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	reqID, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req decisionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	var comments string
	if req.Comments != nil {
		comments = *req.Comments
	}
	out, err := h.service.RejectDeletion(r.Context(), id, reqID, comments)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDeletionResponse(out))
}

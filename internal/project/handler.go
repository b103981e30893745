package project

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fibertrail/fibertrail/internal/platform/httpx"
	"github.com/fibertrail/fibertrail/internal/shared"
)

// Handler wires the workflow endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers the project, P&L, billing and deletion routes.
// All of them sit behind the auth middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Post("/", h.createProject)
		r.Get("/", h.listProjects)
		r.Get("/{id}", h.getProject)
		r.Get("/{id}/history", h.projectHistory)
		r.Post("/{id}/boq", h.createBOQ)
		r.Put("/{id}/boq", h.updateBOQForReview)
		r.Post("/{id}/pnl", h.createPnl)
		r.Post("/{id}/initiate-installation", h.initiateInstallation)
		r.Patch("/{id}/assign-pm", h.assignProjectManager)
		r.Patch("/{id}/status", h.updateStatus)
		r.Post("/{id}/acceptance", h.submitAcceptance)
		r.Delete("/{id}", h.requestDeletion)
	})
	r.Route("/pnl", func(r chi.Router) {
		r.Get("/pending", h.listPendingPnls)
		r.Post("/{id}/approve", h.approvePnl)
		r.Post("/{id}/reject", h.rejectPnl)
		r.Post("/{id}/review", h.reviewPnl)
	})
	r.Route("/billing", func(r chi.Router) {
		r.Post("/{id}/initiate", h.initiateBilling)
		r.Post("/{id}/complete", h.completeBilling)
	})
	r.Route("/deletion-requests", func(r chi.Router) {
		r.Get("/", h.listDeletionRequests)
		r.Post("/{id}/approve", h.approveDeletion)
		r.Post("/{id}/reject", h.rejectDeletion)
	})
}

func identity(w http.ResponseWriter, r *http.Request) (shared.Identity, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
	}
	return id, ok
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) invalid(w http.ResponseWriter, err error) {
	httpx.Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
}

// decodeOptional decodes the body but tolerates an empty one.
func decodeOptional(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type createProjectRequest struct {
	ProjectName        string     `json:"projectName" validate:"required"`
	CustomerName       string     `json:"customerName" validate:"required"`
	SiteAAddress       *string    `json:"siteAAddress"`
	SiteBAddress       *string    `json:"siteBAddress"`
	TargetDeliveryDate *time.Time `json:"targetDeliveryDate"`

	CustomerContact *string `json:"customerContact"`
	CustomerPhone   *string `json:"customerPhone"`
	CustomerEmail   *string `json:"customerEmail" validate:"omitempty,email"`
	ProjectType     string  `json:"projectType" validate:"required"`
	BillingTrigger  string  `json:"billingTrigger" validate:"required"`
	ServiceType     string  `json:"serviceType" validate:"required"`
	Bandwidth       *string `json:"bandwidth"`
	SLARequirements *string `json:"slaRequirements"`
	InterfaceType   *string `json:"interfaceType"`
	Redundancy      bool    `json:"redundancy"`
	IPRequirements  *string `json:"ipRequirements"`
	Notes           *string `json:"notes"`
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.Create(r.Context(), id, CreateProjectInput{
		ProjectName:        req.ProjectName,
		CustomerName:       req.CustomerName,
		SiteAAddress:       req.SiteAAddress,
		SiteBAddress:       req.SiteBAddress,
		TargetDeliveryDate: req.TargetDeliveryDate,
		CustomerContact:    req.CustomerContact,
		CustomerPhone:      req.CustomerPhone,
		CustomerEmail:      req.CustomerEmail,
		ProjectType:        req.ProjectType,
		BillingTrigger:     req.BillingTrigger,
		ServiceType:        req.ServiceType,
		Bandwidth:          req.Bandwidth,
		SLARequirements:    req.SLARequirements,
		InterfaceType:      req.InterfaceType,
		Redundancy:         req.Redundancy,
		IPRequirements:     req.IPRequirements,
		Notes:              req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProjectResponse(proj))
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	summaries, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toSummaryResponse(s))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.Get(r.Context(), pid)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

func (h *Handler) projectHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	entries, err := h.service.History(r.Context(), id, pid)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toHistoryEntryResponse(entry))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type boqRequest struct {
	TotalCost float64 `json:"totalCost" validate:"gte=0"`
	Notes     *string `json:"notes"`
}

func (h *Handler) createBOQ(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req boqRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.CreateBOQ(r.Context(), id, pid, BOQInput{TotalCost: req.TotalCost, Notes: req.Notes})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProjectResponse(proj))
}

type updateBOQRequest struct {
	TotalCost float64 `json:"totalCost" validate:"gt=0"`
	Notes     *string `json:"notes"`
}

func (h *Handler) updateBOQForReview(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req updateBOQRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.UpdateBOQForReview(r.Context(), id, pid, BOQInput{TotalCost: req.TotalCost, Notes: req.Notes})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

type pnlRequest struct {
	OneTimeRevenue     float64 `json:"oneTimeRevenue" validate:"gte=0"`
	RecurringRevenue   float64 `json:"recurringRevenue" validate:"gte=0"`
	ContractTermMonths int     `json:"contractTermMonths" validate:"gt=0"`
}

func (h *Handler) createPnl(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req pnlRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.CreatePnl(r.Context(), id, pid, PnlInput{
		OneTimeRevenue:     req.OneTimeRevenue,
		RecurringRevenue:   req.RecurringRevenue,
		ContractTermMonths: req.ContractTermMonths,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProjectResponse(proj))
}

func (h *Handler) initiateInstallation(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.InitiateInstallation(r.Context(), id, pid)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

type assignPMRequest struct {
	ProjectManagerID int64 `json:"projectManagerId" validate:"gt=0"`
}

func (h *Handler) assignProjectManager(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req assignPMRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.AssignProjectManager(r.Context(), id, pid, req.ProjectManagerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.UpdateStatus(r.Context(), id, pid, Status(req.Status))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(proj))
}

type acceptanceRequest struct {
	AcceptanceDate    time.Time  `json:"acceptanceDate" validate:"required"`
	BillingStartDate  time.Time  `json:"billingStartDate" validate:"required"`
	CustomerSignature string     `json:"customerSignature" validate:"required"`
	ServiceID         *string    `json:"serviceId"`
	CommissionedDate  *time.Time `json:"commissionedDate"`
	SignedByName      *string    `json:"signedByName"`
	SignedByTitle     *string    `json:"signedByTitle"`
	ISPRepresentative *string    `json:"ispRepresentative"`
	Notes             *string    `json:"notes"`
}

func (h *Handler) submitAcceptance(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req acceptanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.invalid(w, err)
		return
	}
	proj, err := h.service.SubmitAcceptance(r.Context(), id, pid, AcceptanceInput{
		AcceptanceDate:    req.AcceptanceDate,
		BillingStartDate:  req.BillingStartDate,
		CustomerSignature: req.CustomerSignature,
		ServiceID:         req.ServiceID,
		CommissionedDate:  req.CommissionedDate,
		SignedByName:      req.SignedByName,
		SignedByTitle:     req.SignedByTitle,
		ISPRepresentative: req.ISPRepresentative,
		Notes:             req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProjectResponse(proj))
}

type deletionRequestBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) requestDeletion(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	pid, err := pathID(r)
	if err != nil {
		h.invalid(w, err)
		return
	}
	var req deletionRequestBody
	if err := decodeOptional(r, &req); err != nil {
		h.invalid(w, err)
		return
	}
	outcome, err := h.service.RequestDeletion(r.Context(), id, pid, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if outcome.Deleted {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
		return
	}
	httpx.JSON(w, http.StatusAccepted, toDeletionResponse(*outcome.Request))
}

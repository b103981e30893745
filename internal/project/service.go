package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// RepositoryPort is the persistence contract the service depends on.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	WithProjectTx(ctx context.Context, projectID int64, fn func(context.Context, TxRepository, Project) error) error
	GetProject(ctx context.Context, id int64) (Project, error)
	ListProjects(ctx context.Context) ([]Summary, error)
	GetPnl(ctx context.Context, pnlID int64) (Pnl, error)
	ListPendingPnls(ctx context.Context) ([]Pnl, error)
	GetDeletionRequest(ctx context.Context, id int64) (DeletionRequest, error)
	ListDeletionRequests(ctx context.Context) ([]DeletionRequest, error)
}

// UserDirectory resolves user existence and role membership.
type UserDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
	IDsByRole(ctx context.Context, role shared.Role) ([]int64, error)
}

// Note is a single notification to be delivered after a transition commits.
type Note struct {
	RecipientID int64
	Title       string
	Message     string
	Kind        string
	Link        string
	ProjectID   int64
}

// Notifier delivers notes best-effort. Implementations must never fail the
// caller; delivery errors are logged and dropped.
type Notifier interface {
	Dispatch(ctx context.Context, actorID int64, notes ...Note)
}

// AuditRecorder appends to the audit trail and reads it back per entity.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
	List(ctx context.Context, entity string, ref uuid.UUID) ([]shared.AuditLog, error)
}

// TransitionObserver counts committed transitions for monitoring.
type TransitionObserver interface {
	ObserveTransition(action string)
}

// Service implements the workflow transitions. Every mutation follows the
// same shape: authorize, open a unit of work holding the project row lock,
// re-check preconditions against the locked state, write, commit, then
// dispatch notifications and audit outside the transaction.
type Service struct {
	repo     RepositoryPort
	users    UserDirectory
	notifier Notifier
	audit    AuditRecorder
	observer TransitionObserver
	logger   *slog.Logger

	// printer renders currency and percentage figures in notification
	// messages with locale-aware digit grouping.
	printer *message.Printer
}

// NewService wires the workflow service.
func NewService(repo RepositoryPort, users UserDirectory, notifier Notifier, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		printer:  message.NewPrinter(language.English),
	}
}

// SetObserver attaches a transition counter. Optional.
func (s *Service) SetObserver(o TransitionObserver) {
	s.observer = o
}

func (s *Service) dispatch(ctx context.Context, actorID int64, notes ...Note) {
	if s.notifier == nil || len(notes) == 0 {
		return
	}
	s.notifier.Dispatch(ctx, actorID, notes...)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action Action, projectID int64, meta map[string]any) {
	if s.observer != nil {
		s.observer.ObserveTransition(string(action))
	}
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID,
		Action:  string(action),
		Entity:  "project",
		RefID:   shared.ProjectRef(projectID),
		Meta:    meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", "action", action, "project_id", projectID, "error", err)
	}
}

func projectLink(projectID int64) string {
	return fmt.Sprintf("/projects/%d", projectID)
}

// CreateProjectInput carries the project and CRD fields captured at intake.
type CreateProjectInput struct {
	ProjectName        string
	CustomerName       string
	SiteAAddress       *string
	SiteBAddress       *string
	TargetDeliveryDate *time.Time

	CustomerContact *string
	CustomerPhone   *string
	CustomerEmail   *string
	ProjectType     string
	BillingTrigger  string
	ServiceType     string
	Bandwidth       *string
	SLARequirements *string
	InterfaceType   *string
	Redundancy      bool
	IPRequirements  *string
	Notes           *string
}

// Create registers a project together with its CRD.
func (s *Service) Create(ctx context.Context, id shared.Identity, in CreateProjectInput) (Project, error) {
	if err := Authorize(id, ActionCreateProject, GuardContext{}); err != nil {
		return Project{}, err
	}
	if strings.TrimSpace(in.ProjectName) == "" || strings.TrimSpace(in.CustomerName) == "" {
		return Project{}, fmt.Errorf("project and customer names are required: %w", shared.ErrInvalidInput)
	}
	var projectID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pid, err := tx.InsertProject(ctx, Project{
			ProjectName:        in.ProjectName,
			CustomerName:       in.CustomerName,
			Status:             StatusCRDSubmitted,
			SiteAAddress:       in.SiteAAddress,
			SiteBAddress:       in.SiteBAddress,
			TargetDeliveryDate: in.TargetDeliveryDate,
			SalesPersonID:      id.UserID,
		})
		if err != nil {
			return err
		}
		if _, err := tx.InsertCRD(ctx, CRD{
			ProjectID:       pid,
			CustomerContact: in.CustomerContact,
			CustomerPhone:   in.CustomerPhone,
			CustomerEmail:   in.CustomerEmail,
			ProjectType:     in.ProjectType,
			BillingTrigger:  in.BillingTrigger,
			ServiceType:     in.ServiceType,
			Bandwidth:       in.Bandwidth,
			SLARequirements: in.SLARequirements,
			InterfaceType:   in.InterfaceType,
			Redundancy:      in.Redundancy,
			IPRequirements:  in.IPRequirements,
			Notes:           in.Notes,
		}); err != nil {
			return err
		}
		projectID = pid
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, id.UserID, ActionCreateProject, projectID, map[string]any{"project_name": in.ProjectName})
	return s.repo.GetProject(ctx, projectID)
}

// Get returns the full aggregate. Any authenticated caller may read.
func (s *Service) Get(ctx context.Context, projectID int64) (Project, error) {
	return s.repo.GetProject(ctx, projectID)
}

// List returns project summaries, most recently updated first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.repo.ListProjects(ctx)
}

// BOQInput carries a cost estimate submission.
type BOQInput struct {
	TotalCost float64
	Notes     *string
}

// CreateBOQ attaches the cost estimate and moves the project to BOQ Ready.
func (s *Service) CreateBOQ(ctx context.Context, id shared.Identity, projectID int64, in BOQInput) (Project, error) {
	if err := Authorize(id, ActionCreateBOQ, GuardContext{}); err != nil {
		return Project{}, err
	}
	if in.TotalCost < 0 {
		return Project{}, fmt.Errorf("total cost must not be negative: %w", shared.ErrInvalidInput)
	}
	err := s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.BOQ != nil {
			return ErrBOQExists
		}
		if p.Status != StatusCRDSubmitted && p.Status != StatusFeasibility {
			return fmt.Errorf("cannot add BOQ in status %q: %w", p.Status, shared.ErrConflict)
		}
		if _, err := tx.InsertBOQ(ctx, BOQ{
			ProjectID:    projectID,
			TotalCost:    in.TotalCost,
			Notes:        in.Notes,
			PreparedByID: id.UserID,
			DatePrepared: time.Now(),
		}); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, projectID, StatusBOQReady)
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, id.UserID, ActionCreateBOQ, projectID, map[string]any{"total_cost": in.TotalCost})
	return s.repo.GetProject(ctx, projectID)
}

// PnlInput carries the revenue side of a P&L submission.
type PnlInput struct {
	OneTimeRevenue     float64
	RecurringRevenue   float64
	ContractTermMonths int
}

// CreatePnl submits the P&L, snapshotting the BOQ cost and deriving profit
// and margin. The project enters Pending Approval.
func (s *Service) CreatePnl(ctx context.Context, id shared.Identity, projectID int64, in PnlInput) (Project, error) {
	if err := Authorize(id, ActionCreatePnl, GuardContext{}); err != nil {
		return Project{}, err
	}
	if in.OneTimeRevenue < 0 || in.RecurringRevenue < 0 {
		return Project{}, fmt.Errorf("revenue must not be negative: %w", shared.ErrInvalidInput)
	}
	if in.ContractTermMonths <= 0 {
		return Project{}, fmt.Errorf("contract term must be positive: %w", shared.ErrInvalidInput)
	}
	err := s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.BOQ == nil {
			return fmt.Errorf("BOQ must exist before a P&L: %w", shared.ErrConflict)
		}
		if p.Pnl != nil {
			return ErrPnlExists
		}
		if p.Status != StatusBOQReady {
			return fmt.Errorf("cannot submit P&L in status %q: %w", p.Status, shared.ErrConflict)
		}
		pnl := Pnl{
			ProjectID:          projectID,
			SubmittedByID:      id.UserID,
			OneTimeRevenue:     in.OneTimeRevenue,
			RecurringRevenue:   in.RecurringRevenue,
			ContractTermMonths: in.ContractTermMonths,
			ApprovalStatus:     ApprovalPending,
			DatePrepared:       time.Now(),
		}
		pnl.Recalculate(p.BOQ.TotalCost)
		if _, err := tx.InsertPnl(ctx, pnl); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, projectID, StatusPendingApproval)
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, id.UserID, ActionCreatePnl, projectID, nil)
	return s.repo.GetProject(ctx, projectID)
}

// ApprovePnl approves a pending P&L and moves the project to Approved.
func (s *Service) ApprovePnl(ctx context.Context, id shared.Identity, pnlID int64, comments *string) (Project, error) {
	pnl, err := s.repo.GetPnl(ctx, pnlID)
	if err != nil {
		return Project{}, err
	}
	if err := Authorize(id, ActionApprovePnl, GuardContext{PnlSubmitterID: pnl.SubmittedByID}); err != nil {
		return Project{}, err
	}
	var submitterID int64
	err = s.repo.WithProjectTx(ctx, pnl.ProjectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.Pnl == nil || p.Pnl.ID != pnlID {
			return ErrPnlNotFound
		}
		if p.Pnl.ApprovalStatus != ApprovalPending {
			return fmt.Errorf("P&L is already %s: %w", p.Pnl.ApprovalStatus, shared.ErrConflict)
		}
		submitterID = p.Pnl.SubmittedByID
		if err := tx.SetPnlDecision(ctx, pnlID, ApprovalApproved, id.UserID, time.Now(), comments); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, p.ID, StatusApproved)
	})
	if err != nil {
		return Project{}, err
	}
	proj, err := s.repo.GetProject(ctx, pnl.ProjectID)
	if err != nil {
		return Project{}, err
	}
	msg := s.printer.Sprintf("The P&L for project %q has been approved.", proj.ProjectName)
	if proj.Pnl != nil {
		msg = s.printer.Sprintf("The P&L for project %q has been approved: %.2f total revenue at %.1f%% gross margin.",
			proj.ProjectName, proj.Pnl.TotalRevenue(), proj.Pnl.GrossMargin)
	}
	s.dispatch(ctx, id.UserID, Note{
		RecipientID: submitterID,
		Title:       "P&L Approved",
		Message:     msg,
		Kind:        "success",
		Link:        projectLink(proj.ID),
		ProjectID:   proj.ID,
	})
	s.recordAudit(ctx, id.UserID, ActionApprovePnl, proj.ID, nil)
	return proj, nil
}

// RejectPnl rejects a pending P&L with mandatory comments and moves the
// project to P&L Rejected.
func (s *Service) RejectPnl(ctx context.Context, id shared.Identity, pnlID int64, comments string) (Project, error) {
	pnl, err := s.repo.GetPnl(ctx, pnlID)
	if err != nil {
		return Project{}, err
	}
	if err := Authorize(id, ActionRejectPnl, GuardContext{PnlSubmitterID: pnl.SubmittedByID}); err != nil {
		return Project{}, err
	}
	if strings.TrimSpace(comments) == "" {
		return Project{}, fmt.Errorf("rejection comments are required: %w", shared.ErrInvalidInput)
	}
	var submitterID int64
	err = s.repo.WithProjectTx(ctx, pnl.ProjectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.Pnl == nil || p.Pnl.ID != pnlID {
			return ErrPnlNotFound
		}
		if p.Pnl.ApprovalStatus != ApprovalPending {
			return fmt.Errorf("P&L is already %s: %w", p.Pnl.ApprovalStatus, shared.ErrConflict)
		}
		submitterID = p.Pnl.SubmittedByID
		if err := tx.SetPnlDecision(ctx, pnlID, ApprovalRejected, id.UserID, time.Now(), &comments); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, p.ID, StatusPnlRejected)
	})
	if err != nil {
		return Project{}, err
	}
	proj, err := s.repo.GetProject(ctx, pnl.ProjectID)
	if err != nil {
		return Project{}, err
	}
	msg := s.printer.Sprintf("The P&L for project %q was rejected: %s", proj.ProjectName, comments)
	if proj.Pnl != nil {
		msg = s.printer.Sprintf("The P&L for project %q (%.2f BOQ cost, %.1f%% gross margin) was rejected: %s",
			proj.ProjectName, proj.Pnl.BoqCost, proj.Pnl.GrossMargin, comments)
	}
	s.dispatch(ctx, id.UserID, Note{
		RecipientID: submitterID,
		Title:       "P&L Rejected",
		Message:     msg,
		Kind:        "error",
		Link:        projectLink(proj.ID),
		ProjectID:   proj.ID,
	})
	s.recordAudit(ctx, id.UserID, ActionRejectPnl, proj.ID, map[string]any{"comments": comments})
	return proj, nil
}

// ReviewPnl sends a rejected P&L back for review. Prior comments are kept
// when no new comment is supplied.
func (s *Service) ReviewPnl(ctx context.Context, id shared.Identity, pnlID int64, comments *string) (Project, error) {
	pnl, err := s.repo.GetPnl(ctx, pnlID)
	if err != nil {
		return Project{}, err
	}
	if err := Authorize(id, ActionReviewPnl, GuardContext{PnlSubmitterID: pnl.SubmittedByID}); err != nil {
		return Project{}, err
	}
	if comments != nil && strings.TrimSpace(*comments) == "" {
		comments = nil
	}
	err = s.repo.WithProjectTx(ctx, pnl.ProjectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.Pnl == nil || p.Pnl.ID != pnlID {
			return ErrPnlNotFound
		}
		if p.Pnl.ApprovalStatus != ApprovalRejected {
			return fmt.Errorf("only a rejected P&L can go under review, got %s: %w", p.Pnl.ApprovalStatus, shared.ErrConflict)
		}
		if err := tx.SetPnlReview(ctx, pnlID, comments); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, p.ID, StatusPnlUnderReview)
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, id.UserID, ActionReviewPnl, pnl.ProjectID, nil)
	return s.repo.GetProject(ctx, pnl.ProjectID)
}

// UpdateBOQForReview replaces the BOQ while the P&L is under review,
// recalculates the P&L against the new cost and resets it to Pending.
func (s *Service) UpdateBOQForReview(ctx context.Context, id shared.Identity, projectID int64, in BOQInput) (Project, error) {
	if err := Authorize(id, ActionUpdateBOQForReview, GuardContext{}); err != nil {
		return Project{}, err
	}
	if in.TotalCost <= 0 {
		return Project{}, fmt.Errorf("total cost must be positive: %w", shared.ErrInvalidInput)
	}
	err := s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.BOQ == nil {
			return fmt.Errorf("boq %w", shared.ErrNotFound)
		}
		if p.Pnl == nil {
			return ErrPnlNotFound
		}
		if p.Pnl.ApprovalStatus != ApprovalUnderReview {
			return fmt.Errorf("P&L is not under review: %w", shared.ErrConflict)
		}
		boq := *p.BOQ
		boq.TotalCost = in.TotalCost
		boq.Notes = in.Notes
		boq.PreparedByID = id.UserID
		boq.DatePrepared = time.Now()
		if err := tx.ReplaceBOQ(ctx, boq); err != nil {
			return err
		}
		pnl := *p.Pnl
		pnl.Recalculate(in.TotalCost)
		if err := tx.ResetPnl(ctx, pnl); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, projectID, StatusPendingApproval)
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, id.UserID, ActionUpdateBOQForReview, projectID, map[string]any{"total_cost": in.TotalCost})
	return s.repo.GetProject(ctx, projectID)
}

// InitiateInstallation moves an approved project into the execution phase.
func (s *Service) InitiateInstallation(ctx context.Context, id shared.Identity, projectID int64) (Project, error) {
	proj, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	if err := Authorize(id, ActionInitiateInstall, GuardContext{SalesPersonID: proj.SalesPersonID}); err != nil {
		return Project{}, err
	}
	err = s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.Status != StatusApproved {
			return fmt.Errorf("project must be Approved to start installation, got %q: %w", p.Status, shared.ErrConflict)
		}
		return tx.UpdateStatus(ctx, projectID, StatusInstallationPending)
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, id.UserID, ActionInitiateInstall, projectID, nil)
	return s.repo.GetProject(ctx, projectID)
}

// AssignProjectManager sets the project manager once, during the
// installation phase only.
func (s *Service) AssignProjectManager(ctx context.Context, id shared.Identity, projectID, pmID int64) (Project, error) {
	if err := Authorize(id, ActionAssignPM, GuardContext{}); err != nil {
		return Project{}, err
	}
	ok, err := s.users.Exists(ctx, pmID)
	if err != nil {
		return Project{}, err
	}
	if !ok {
		return Project{}, fmt.Errorf("user %d %w", pmID, shared.ErrNotFound)
	}
	err = s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.ProjectManagerID != nil {
			return fmt.Errorf("project manager already assigned: %w", shared.ErrConflict)
		}
		if !p.Status.InInstallationPhase() {
			return fmt.Errorf("cannot assign a project manager in status %q: %w", p.Status, shared.ErrConflict)
		}
		return tx.SetProjectManager(ctx, projectID, pmID)
	})
	if err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, id.UserID, ActionAssignPM, projectID, map[string]any{"project_manager_id": pmID})
	return s.repo.GetProject(ctx, projectID)
}

// UpdateStatus applies a manual forward transition. Targets outside the
// transition map are refused; completion is only reachable via acceptance.
func (s *Service) UpdateStatus(ctx context.Context, id shared.Identity, projectID int64, target Status) (Project, error) {
	if err := Authorize(id, ActionUpdateStatus, GuardContext{}); err != nil {
		return Project{}, err
	}
	if strings.TrimSpace(string(target)) == "" {
		return Project{}, fmt.Errorf("target status is required: %w", shared.ErrInvalidInput)
	}
	var (
		salesID int64
		pmID    *int64
	)
	err := s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if !p.Status.CanTransitionTo(target) {
			return fmt.Errorf("cannot move from %q to %q: %w", p.Status, target, shared.ErrConflict)
		}
		salesID = p.SalesPersonID
		pmID = p.ProjectManagerID
		return tx.UpdateStatus(ctx, projectID, target)
	})
	if err != nil {
		return Project{}, err
	}
	proj, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	notes := []Note{{
		RecipientID: salesID,
		Title:       "Project Status Updated",
		Message:     fmt.Sprintf("Project %q is now %q.", proj.ProjectName, target),
		Kind:        "info",
		Link:        projectLink(projectID),
		ProjectID:   projectID,
	}}
	if pmID != nil && *pmID != salesID {
		notes = append(notes, Note{
			RecipientID: *pmID,
			Title:       "Project Status Updated",
			Message:     fmt.Sprintf("Project %q is now %q.", proj.ProjectName, target),
			Kind:        "info",
			Link:        projectLink(projectID),
			ProjectID:   projectID,
		})
	}
	s.dispatch(ctx, id.UserID, notes...)
	s.recordAudit(ctx, id.UserID, ActionUpdateStatus, projectID, map[string]any{"status": string(target)})
	return proj, nil
}

// AcceptanceInput carries the customer signoff record.
type AcceptanceInput struct {
	AcceptanceDate    time.Time
	BillingStartDate  time.Time
	CustomerSignature string
	ServiceID         *string
	CommissionedDate  *time.Time
	SignedByName      *string
	SignedByTitle     *string
	ISPRepresentative *string
	Notes             *string
}

// SubmitAcceptance logs the customer signoff, completing the project and
// marking billing as Pending.
func (s *Service) SubmitAcceptance(ctx context.Context, id shared.Identity, projectID int64, in AcceptanceInput) (Project, error) {
	if err := Authorize(id, ActionSubmitAcceptance, GuardContext{}); err != nil {
		return Project{}, err
	}
	if in.AcceptanceDate.IsZero() || in.BillingStartDate.IsZero() || strings.TrimSpace(in.CustomerSignature) == "" {
		return Project{}, fmt.Errorf("acceptance date, billing start date and signature are required: %w", shared.ErrInvalidInput)
	}
	var (
		salesID int64
		pmID    *int64
	)
	err := s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.AcceptanceForm != nil {
			return ErrAcceptanceExists
		}
		if !p.Status.AcceptsCustomerSignoff() {
			return fmt.Errorf("cannot log acceptance in status %q: %w", p.Status, shared.ErrConflict)
		}
		salesID = p.SalesPersonID
		pmID = p.ProjectManagerID
		if _, err := tx.InsertAcceptanceForm(ctx, AcceptanceForm{
			ProjectID:         projectID,
			AcceptanceDate:    in.AcceptanceDate,
			BillingStartDate:  in.BillingStartDate,
			CustomerSignature: in.CustomerSignature,
			LoggedByID:        id.UserID,
			ServiceID:         in.ServiceID,
			CommissionedDate:  in.CommissionedDate,
			SignedByName:      in.SignedByName,
			SignedByTitle:     in.SignedByTitle,
			ISPRepresentative: in.ISPRepresentative,
			Notes:             in.Notes,
		}); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, projectID, StatusCompleted); err != nil {
			return err
		}
		return tx.SetBillingStatus(ctx, projectID, BillingPending)
	})
	if err != nil {
		return Project{}, err
	}
	proj, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	notes := []Note{
		{
			RecipientID: salesID,
			Title:       "Project Completed",
			Message:     fmt.Sprintf("Project %q has been accepted by the customer and is now complete.", proj.ProjectName),
			Kind:        "success",
			Link:        projectLink(projectID),
			ProjectID:   projectID,
		},
		{
			RecipientID: salesID,
			Title:       "Ready for Billing",
			Message:     fmt.Sprintf("Project %q is ready for billing; billing status is now Pending.", proj.ProjectName),
			Kind:        "info",
			Link:        projectLink(projectID),
			ProjectID:   projectID,
		},
	}
	if pmID != nil {
		notes = append(notes, Note{
			RecipientID: *pmID,
			Title:       "Project Completed",
			Message:     fmt.Sprintf("Project %q has been accepted by the customer and is now complete.", proj.ProjectName),
			Kind:        "success",
			Link:        projectLink(projectID),
			ProjectID:   projectID,
		})
	}
	s.dispatch(ctx, id.UserID, notes...)
	s.recordAudit(ctx, id.UserID, ActionSubmitAcceptance, projectID, nil)
	return proj, nil
}

// InitiateBilling flips billing to Initiated on a completed, accepted project.
func (s *Service) InitiateBilling(ctx context.Context, id shared.Identity, projectID int64) (Project, error) {
	proj, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	if err := Authorize(id, ActionInitiateBilling, GuardContext{SalesPersonID: proj.SalesPersonID}); err != nil {
		return Project{}, err
	}
	var salesID int64
	err = s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.Status != StatusCompleted {
			return fmt.Errorf("project is not Completed: %w", shared.ErrConflict)
		}
		if p.AcceptanceForm == nil {
			return fmt.Errorf("acceptance form %w", shared.ErrNotFound)
		}
		if p.BillingStatus != nil && (*p.BillingStatus == BillingInitiated || *p.BillingStatus == BillingBilled) {
			return fmt.Errorf("billing already %s: %w", *p.BillingStatus, shared.ErrConflict)
		}
		salesID = p.SalesPersonID
		return tx.SetBillingStatus(ctx, projectID, BillingInitiated)
	})
	if err != nil {
		return Project{}, err
	}
	proj, err = s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	financeIDs, derr := s.users.IDsByRole(ctx, shared.RoleFinance)
	if derr != nil {
		s.logger.Warn("finance recipient lookup failed", "error", derr)
	}
	var notes []Note
	for _, fid := range financeIDs {
		notes = append(notes, Note{
			RecipientID: fid,
			Title:       "Billing Initiated",
			Message:     fmt.Sprintf("Billing has been initiated for project %q.", proj.ProjectName),
			Kind:        "info",
			Link:        projectLink(projectID),
			ProjectID:   projectID,
		})
	}
	if salesID != id.UserID {
		notes = append(notes, Note{
			RecipientID: salesID,
			Title:       "Billing Initiated",
			Message:     fmt.Sprintf("Billing has been initiated for project %q.", proj.ProjectName),
			Kind:        "info",
			Link:        projectLink(projectID),
			ProjectID:   projectID,
		})
	}
	s.dispatch(ctx, id.UserID, notes...)
	s.recordAudit(ctx, id.UserID, ActionInitiateBilling, projectID, nil)
	return proj, nil
}

// CompleteBilling marks the project as billed.
func (s *Service) CompleteBilling(ctx context.Context, id shared.Identity, projectID int64) (Project, error) {
	if err := Authorize(id, ActionCompleteBilling, GuardContext{}); err != nil {
		return Project{}, err
	}
	var salesID int64
	err := s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.BillingStatus == nil || *p.BillingStatus != BillingInitiated {
			return fmt.Errorf("billing has not been initiated: %w", shared.ErrConflict)
		}
		salesID = p.SalesPersonID
		return tx.SetBillingStatus(ctx, projectID, BillingBilled)
	})
	if err != nil {
		return Project{}, err
	}
	proj, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	s.dispatch(ctx, id.UserID, Note{
		RecipientID: salesID,
		Title:       "Billing Completed",
		Message:     fmt.Sprintf("Project %q has been billed.", proj.ProjectName),
		Kind:        "success",
		Link:        projectLink(projectID),
		ProjectID:   projectID,
	})
	s.recordAudit(ctx, id.UserID, ActionCompleteBilling, projectID, nil)
	return proj, nil
}

// DeletionOutcome reports what RequestDeletion did: an admin delete removes
// the project immediately, a sales request creates a pending record.
type DeletionOutcome struct {
	Deleted bool
	Request *DeletionRequest
}

// RequestDeletion either deletes the project outright (admin) or files a
// pending deletion request for admin review (assigned salesperson).
func (s *Service) RequestDeletion(ctx context.Context, id shared.Identity, projectID int64, reason string) (DeletionOutcome, error) {
	proj, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return DeletionOutcome{}, err
	}
	if err := Authorize(id, ActionRequestDeletion, GuardContext{SalesPersonID: proj.SalesPersonID}); err != nil {
		return DeletionOutcome{}, err
	}
	if id.Role == shared.RoleAdmin {
		err = s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
			return tx.DeleteProjectCascade(ctx, projectID)
		})
		if err != nil {
			return DeletionOutcome{}, err
		}
		s.recordAudit(ctx, id.UserID, ActionRequestDeletion, projectID, map[string]any{"immediate": true})
		return DeletionOutcome{Deleted: true}, nil
	}

	if strings.TrimSpace(reason) == "" {
		return DeletionOutcome{}, fmt.Errorf("a reason is required: %w", shared.ErrInvalidInput)
	}
	var requestID int64
	err = s.repo.WithProjectTx(ctx, projectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.DeletionRequest != nil {
			return ErrRequestExists
		}
		rid, err := tx.InsertDeletionRequest(ctx, DeletionRequest{
			ProjectID:     projectID,
			Reason:        reason,
			RequestedByID: id.UserID,
			Status:        DeletionPending,
		})
		if err != nil {
			return err
		}
		requestID = rid
		return nil
	})
	if err != nil {
		return DeletionOutcome{}, err
	}
	adminIDs, derr := s.users.IDsByRole(ctx, shared.RoleAdmin)
	if derr != nil {
		s.logger.Warn("admin recipient lookup failed", "error", derr)
	}
	var notes []Note
	for _, aid := range adminIDs {
		notes = append(notes, Note{
			RecipientID: aid,
			Title:       "Project Deletion Requested",
			Message:     fmt.Sprintf("Deletion of project %q was requested: %s", proj.ProjectName, reason),
			Kind:        "warning",
			Link:        "/deletion-requests",
			ProjectID:   projectID,
		})
	}
	s.dispatch(ctx, id.UserID, notes...)
	s.recordAudit(ctx, id.UserID, ActionRequestDeletion, projectID, map[string]any{"reason": reason})
	req, err := s.repo.GetDeletionRequest(ctx, requestID)
	if err != nil {
		return DeletionOutcome{}, err
	}
	return DeletionOutcome{Request: &req}, nil
}

// ApproveDeletion executes a pending deletion request, cascading the delete.
func (s *Service) ApproveDeletion(ctx context.Context, id shared.Identity, requestID int64) error {
	req, err := s.repo.GetDeletionRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if err := Authorize(id, ActionApproveDeletion, GuardContext{}); err != nil {
		return err
	}
	var (
		requesterID int64
		projectName string
	)
	err = s.repo.WithProjectTx(ctx, req.ProjectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.DeletionRequest == nil || p.DeletionRequest.ID != requestID {
			return ErrRequestNotFound
		}
		if p.DeletionRequest.Status != DeletionPending {
			return fmt.Errorf("deletion request is already %s: %w", p.DeletionRequest.Status, shared.ErrConflict)
		}
		requesterID = p.DeletionRequest.RequestedByID
		projectName = p.ProjectName
		if err := tx.SetDeletionDecision(ctx, requestID, DeletionApproved, id.UserID, time.Now(), nil); err != nil {
			return err
		}
		return tx.DeleteProjectCascade(ctx, req.ProjectID)
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, id.UserID, Note{
		RecipientID: requesterID,
		Title:       "Deletion Request Approved",
		Message:     fmt.Sprintf("Project %q has been deleted.", projectName),
		Kind:        "info",
	})
	s.recordAudit(ctx, id.UserID, ActionApproveDeletion, req.ProjectID, nil)
	return nil
}

// RejectDeletion declines a pending deletion request; the project survives.
func (s *Service) RejectDeletion(ctx context.Context, id shared.Identity, requestID int64, comments string) (DeletionRequest, error) {
	req, err := s.repo.GetDeletionRequest(ctx, requestID)
	if err != nil {
		return DeletionRequest{}, err
	}
	if err := Authorize(id, ActionRejectDeletion, GuardContext{}); err != nil {
		return DeletionRequest{}, err
	}
	if strings.TrimSpace(comments) == "" {
		return DeletionRequest{}, fmt.Errorf("response comments are required: %w", shared.ErrInvalidInput)
	}
	var (
		requesterID int64
		projectName string
	)
	err = s.repo.WithProjectTx(ctx, req.ProjectID, func(ctx context.Context, tx TxRepository, p Project) error {
		if p.DeletionRequest == nil || p.DeletionRequest.ID != requestID {
			return ErrRequestNotFound
		}
		if p.DeletionRequest.Status != DeletionPending {
			return fmt.Errorf("deletion request is already %s: %w", p.DeletionRequest.Status, shared.ErrConflict)
		}
		requesterID = p.DeletionRequest.RequestedByID
		projectName = p.ProjectName
		return tx.SetDeletionDecision(ctx, requestID, DeletionRejected, id.UserID, time.Now(), &comments)
	})
	if err != nil {
		return DeletionRequest{}, err
	}
	s.dispatch(ctx, id.UserID, Note{
		RecipientID: requesterID,
		Title:       "Deletion Request Rejected",
		Message:     fmt.Sprintf("The deletion request for project %q was rejected: %s", projectName, comments),
		Kind:        "warning",
		Link:        projectLink(req.ProjectID),
		ProjectID:   req.ProjectID,
	})
	s.recordAudit(ctx, id.UserID, ActionRejectDeletion, req.ProjectID, map[string]any{"comments": comments})
	return s.repo.GetDeletionRequest(ctx, requestID)
}

// ListPendingPnls returns P&Ls awaiting an admin decision.
func (s *Service) ListPendingPnls(ctx context.Context, id shared.Identity) ([]Pnl, error) {
	if err := Authorize(id, ActionListPendingPnls, GuardContext{}); err != nil {
		return nil, err
	}
	return s.repo.ListPendingPnls(ctx)
}

// ListDeletionRequests returns all deletion requests for admin review.
func (s *Service) ListDeletionRequests(ctx context.Context, id shared.Identity) ([]DeletionRequest, error) {
	if err := Authorize(id, ActionListDeletions, GuardContext{}); err != nil {
		return nil, err
	}
	return s.repo.ListDeletionRequests(ctx)
}

// History returns the project's audit trail, oldest entry first. The project
// must exist; a deployment without audit storage reports an empty trail.
func (s *Service) History(ctx context.Context, id shared.Identity, projectID int64) ([]shared.AuditLog, error) {
	if err := Authorize(id, ActionViewHistory, GuardContext{}); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []shared.AuditLog{}, nil
	}
	return s.audit.List(ctx, "project", shared.ProjectRef(projectID))
}

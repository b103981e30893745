package project

import (
	"fmt"
	"time"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// Status is the project lifecycle state. The literal strings are part of the
// external contract and must not change.
type Status string

const (
	StatusCRDSubmitted        Status = "CRD Submitted"
	StatusFeasibility         Status = "Feasibility"
	StatusBOQReady            Status = "BOQ Ready"
	StatusPendingApproval     Status = "Pending Approval"
	StatusPnlRejected         Status = "P&L Rejected"
	StatusPnlUnderReview      Status = "P&L Under Review"
	StatusApproved            Status = "Approved"
	StatusInstallationPending Status = "Installation Pending"
	StatusInProgress          Status = "In Progress"
	StatusPhysicalComplete    Status = "Physical Installation Complete"
	StatusProvisioningDone    Status = "Provisioning Complete"
	StatusCommissioningDone   Status = "Commissioning Complete"
	StatusUATPending          Status = "UAT Pending"
	StatusUATFailed           Status = "UAT Failed"
	StatusSoakPeriod          Status = "Soak Period"
	StatusCompleted           Status = "Completed"
)

// BillingStatus tracks the post-completion billing sub-state.
type BillingStatus string

const (
	BillingNotReady  BillingStatus = "Not Ready"
	BillingPending   BillingStatus = "Pending"
	BillingInitiated BillingStatus = "Initiated"
	BillingBilled    BillingStatus = "Billed"
)

// ApprovalStatus is the P&L approval lifecycle state.
type ApprovalStatus string

const (
	ApprovalPending     ApprovalStatus = "Pending"
	ApprovalApproved    ApprovalStatus = "Approved"
	ApprovalRejected    ApprovalStatus = "Rejected"
	ApprovalUnderReview ApprovalStatus = "Under Review"
)

// manualTransitions is the forward-transition map enforced by UpdateStatus.
// A failed UAT can go back to In Progress for rework or straight to a retest.
// Completion is not reachable here; it happens only through acceptance.
var manualTransitions = map[Status][]Status{
	StatusCRDSubmitted:        {StatusFeasibility},
	StatusInstallationPending: {StatusInProgress},
	StatusInProgress:          {StatusPhysicalComplete},
	StatusPhysicalComplete:    {StatusProvisioningDone},
	StatusProvisioningDone:    {StatusCommissioningDone},
	StatusCommissioningDone:   {StatusUATPending},
	StatusUATPending:          {StatusUATFailed, StatusSoakPeriod},
	StatusUATFailed:           {StatusUATPending, StatusInProgress},
}

// installationPhase covers the execution statuses between installation start
// and customer acceptance. Project manager assignment is limited to them.
var installationPhase = map[Status]bool{
	StatusInstallationPending: true,
	StatusInProgress:          true,
	StatusPhysicalComplete:    true,
	StatusProvisioningDone:    true,
	StatusCommissioningDone:   true,
	StatusUATPending:          true,
	StatusUATFailed:           true,
	StatusSoakPeriod:          true,
}

// preAcceptance lists the statuses from which customer acceptance may be logged.
var preAcceptance = map[Status]bool{
	StatusInProgress:        true,
	StatusCommissioningDone: true,
	StatusUATPending:        true,
	StatusUATFailed:         true,
	StatusSoakPeriod:        true,
}

// CanTransitionTo reports whether target is a valid manual forward transition.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range manualTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// InInstallationPhase reports whether s is an execution status.
func (s Status) InInstallationPhase() bool {
	return installationPhase[s]
}

// AcceptsCustomerSignoff reports whether acceptance may be logged from s.
func (s Status) AcceptsCustomerSignoff() bool {
	return preAcceptance[s]
}

// Project is the root aggregate.
type Project struct {
	ID                 int64
	ProjectName        string
	CustomerName       string
	Status             Status
	BillingStatus      *BillingStatus
	SiteAAddress       *string
	SiteBAddress       *string
	TargetDeliveryDate *time.Time
	SalesPersonID      int64
	ProjectManagerID   *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time

	CRD             *CRD
	BOQ             *BOQ
	Pnl             *Pnl
	AcceptanceForm  *AcceptanceForm
	DeletionRequest *DeletionRequest
}

// Summary is the list-view projection of a project.
type Summary struct {
	ID               int64
	ProjectName      string
	CustomerName     string
	Status           Status
	BillingStatus    *BillingStatus
	SalesPersonID    int64
	ProjectManagerID *int64
	ProjectType      *string
	ServiceType      *string
	HasBOQ           bool
	PnlStatus        *ApprovalStatus
	UpdatedAt        time.Time
}

// CRD captures the raw customer requirement. Immutable after creation.
type CRD struct {
	ID              int64
	ProjectID       int64
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
	CreatedAt       time.Time
}

// BOQ is the aggregate installation cost estimate.
type BOQ struct {
	ID           int64
	ProjectID    int64
	TotalCost    float64
	Notes        *string
	PreparedByID int64
	DatePrepared time.Time
}

// Pnl is the profit and loss statement derived from BOQ cost and revenue.
type Pnl struct {
	ID                 int64
	ProjectID          int64
	SubmittedByID      int64
	BoqCost            float64
	OneTimeRevenue     float64
	RecurringRevenue   float64
	ContractTermMonths int
	GrossProfit        float64
	GrossMargin        float64
	ApprovalStatus     ApprovalStatus
	ApproverID         *int64
	ApprovalDate       *time.Time
	AdminComments      *string
	DatePrepared       time.Time
}

// TotalRevenue is the contract value over the full term.
func (p Pnl) TotalRevenue() float64 {
	return p.OneTimeRevenue + p.RecurringRevenue*float64(p.ContractTermMonths)
}

// Recalculate rederives profit and margin from the given BOQ cost.
// Margin is zero when total revenue is zero.
func (p *Pnl) Recalculate(boqCost float64) {
	p.BoqCost = boqCost
	total := p.TotalRevenue()
	p.GrossProfit = total - boqCost
	if total > 0 {
		p.GrossMargin = p.GrossProfit / total * 100
	} else {
		p.GrossMargin = 0
	}
}

// AcceptanceForm records customer signoff. Immutable after creation.
type AcceptanceForm struct {
	ID                int64
	ProjectID         int64
	AcceptanceDate    time.Time
	BillingStartDate  time.Time
	CustomerSignature string
	LoggedByID        int64
	ServiceID         *string
	CommissionedDate  *time.Time
	SignedByName      *string
	SignedByTitle     *string
	ISPRepresentative *string
	Notes             *string
	CreatedAt         time.Time
}

// DeletionStatus is the deletion request lifecycle state.
type DeletionStatus string

const (
	DeletionPending  DeletionStatus = "Pending"
	DeletionApproved DeletionStatus = "Approved"
	DeletionRejected DeletionStatus = "Rejected"
)

// DeletionRequest asks for a project to be removed; requires admin response.
type DeletionRequest struct {
	ID               int64
	ProjectID        int64
	Reason           string
	RequestedByID    int64
	Status           DeletionStatus
	RequestDate      time.Time
	ResponseDate     *time.Time
	ResponseComments *string
	RespondedByID    *int64
}

// Wrapped taxonomy errors for the most common failure modes.
var (
	ErrProjectNotFound  = fmt.Errorf("project %w", shared.ErrNotFound)
	ErrPnlNotFound      = fmt.Errorf("p&l %w", shared.ErrNotFound)
	ErrRequestNotFound  = fmt.Errorf("deletion request %w", shared.ErrNotFound)
	ErrDuplicateName    = fmt.Errorf("project name already in use: %w", shared.ErrConflict)
	ErrBOQExists        = fmt.Errorf("boq already exists: %w", shared.ErrConflict)
	ErrPnlExists        = fmt.Errorf("p&l already exists: %w", shared.ErrConflict)
	ErrAcceptanceExists = fmt.Errorf("acceptance form already exists: %w", shared.ErrConflict)
	ErrRequestExists    = fmt.Errorf("deletion request already exists: %w", shared.ErrConflict)
)

package project

import (
	"time"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// Response shapes mirror the persisted aggregate. Field names are part of
// the external contract consumed by the frontend.

type projectResponse struct {
	ID                 int64          `json:"id"`
	ProjectName        string         `json:"projectName"`
	CustomerName       string         `json:"customerName"`
	Status             Status         `json:"status"`
	BillingStatus      *BillingStatus `json:"billingStatus"`
	SiteAAddress       *string        `json:"siteAAddress"`
	SiteBAddress       *string        `json:"siteBAddress"`
	TargetDeliveryDate *time.Time     `json:"targetDeliveryDate"`
	SalesPersonID      int64          `json:"salesPersonId"`
	ProjectManagerID   *int64         `json:"projectManagerId"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`

	CRD             *crdResponse        `json:"crd,omitempty"`
	BOQ             *boqResponse        `json:"boq,omitempty"`
	Pnl             *pnlResponse        `json:"pnl,omitempty"`
	AcceptanceForm  *acceptanceResponse `json:"acceptanceForm,omitempty"`
	DeletionRequest *deletionResponse   `json:"deletionRequest,omitempty"`
}

type crdResponse struct {
	ID              int64      `json:"id"`
	CustomerContact *string    `json:"customerContact"`
	CustomerPhone   *string    `json:"customerPhone"`
	CustomerEmail   *string    `json:"customerEmail"`
	ProjectType     string     `json:"projectType"`
	BillingTrigger  string     `json:"billingTrigger"`
	ServiceType     string     `json:"serviceType"`
	Bandwidth       *string    `json:"bandwidth"`
	SLARequirements *string    `json:"slaRequirements"`
	InterfaceType   *string    `json:"interfaceType"`
	Redundancy      bool       `json:"redundancy"`
	IPRequirements  *string    `json:"ipRequirements"`
	Notes           *string    `json:"notes"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type boqResponse struct {
	ID           int64     `json:"id"`
	TotalCost    float64   `json:"totalCost"`
	Notes        *string   `json:"notes"`
	PreparedByID int64     `json:"preparedById"`
	DatePrepared time.Time `json:"datePrepared"`
}

type pnlResponse struct {
	ID                 int64          `json:"id"`
	ProjectID          int64          `json:"projectId"`
	SubmittedByID      int64          `json:"submittedById"`
	BoqCost            float64        `json:"boqCost"`
	OneTimeRevenue     float64        `json:"oneTimeRevenue"`
	RecurringRevenue   float64        `json:"recurringRevenue"`
	ContractTermMonths int            `json:"contractTermMonths"`
	GrossProfit        float64        `json:"grossProfit"`
	GrossMargin        float64        `json:"grossMargin"`
	ApprovalStatus     ApprovalStatus `json:"approvalStatus"`
	ApproverID         *int64         `json:"approverId"`
	ApprovalDate       *time.Time     `json:"approvalDate"`
	AdminComments      *string        `json:"adminComments"`
	DatePrepared       time.Time      `json:"datePrepared"`
}

type acceptanceResponse struct {
	ID                int64      `json:"id"`
	AcceptanceDate    time.Time  `json:"acceptanceDate"`
	BillingStartDate  time.Time  `json:"billingStartDate"`
	CustomerSignature string     `json:"customerSignature"`
	LoggedByID        int64      `json:"loggedById"`
	ServiceID         *string    `json:"serviceId"`
	CommissionedDate  *time.Time `json:"commissionedDate"`
	SignedByName      *string    `json:"signedByName"`
	SignedByTitle     *string    `json:"signedByTitle"`
	ISPRepresentative *string    `json:"ispRepresentative"`
	Notes             *string    `json:"notes"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type deletionResponse struct {
	ID               int64          `json:"id"`
	ProjectID        int64          `json:"projectId"`
	Reason           string         `json:"reason"`
	RequestedByID    int64          `json:"requestedById"`
	Status           DeletionStatus `json:"status"`
	RequestDate      time.Time      `json:"requestDate"`
	ResponseDate     *time.Time     `json:"responseDate"`
	ResponseComments *string        `json:"responseComments"`
	RespondedByID    *int64         `json:"respondedById"`
}

type summaryResponse struct {
	ID               int64           `json:"id"`
	ProjectName      string          `json:"projectName"`
	CustomerName     string          `json:"customerName"`
	Status           Status          `json:"status"`
	BillingStatus    *BillingStatus  `json:"billingStatus"`
	SalesPersonID    int64           `json:"salesPersonId"`
	ProjectManagerID *int64          `json:"projectManagerId"`
	ProjectType      *string         `json:"projectType"`
	ServiceType      *string         `json:"serviceType"`
	HasBOQ           bool            `json:"hasBoq"`
	PnlStatus        *ApprovalStatus `json:"pnlStatus"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func toProjectResponse(p Project) projectResponse {
	resp := projectResponse{
		ID:                 p.ID,
		ProjectName:        p.ProjectName,
		CustomerName:       p.CustomerName,
		Status:             p.Status,
		BillingStatus:      p.BillingStatus,
		SiteAAddress:       p.SiteAAddress,
		SiteBAddress:       p.SiteBAddress,
		TargetDeliveryDate: p.TargetDeliveryDate,
		SalesPersonID:      p.SalesPersonID,
		ProjectManagerID:   p.ProjectManagerID,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.CRD != nil {
		resp.CRD = &crdResponse{
			ID:              p.CRD.ID,
			CustomerContact: p.CRD.CustomerContact,
			CustomerPhone:   p.CRD.CustomerPhone,
			CustomerEmail:   p.CRD.CustomerEmail,
			ProjectType:     p.CRD.ProjectType,
			BillingTrigger:  p.CRD.BillingTrigger,
			ServiceType:     p.CRD.ServiceType,
			Bandwidth:       p.CRD.Bandwidth,
			SLARequirements: p.CRD.SLARequirements,
			InterfaceType:   p.CRD.InterfaceType,
			Redundancy:      p.CRD.Redundancy,
			IPRequirements:  p.CRD.IPRequirements,
			Notes:           p.CRD.Notes,
			CreatedAt:       p.CRD.CreatedAt,
		}
	}
	if p.BOQ != nil {
		resp.BOQ = &boqResponse{
			ID:           p.BOQ.ID,
			TotalCost:    p.BOQ.TotalCost,
			Notes:        p.BOQ.Notes,
			PreparedByID: p.BOQ.PreparedByID,
			DatePrepared: p.BOQ.DatePrepared,
		}
	}
	if p.Pnl != nil {
		pnl := toPnlResponse(*p.Pnl)
		resp.Pnl = &pnl
	}
	if p.AcceptanceForm != nil {
		resp.AcceptanceForm = &acceptanceResponse{
			ID:                p.AcceptanceForm.ID,
			AcceptanceDate:    p.AcceptanceForm.AcceptanceDate,
			BillingStartDate:  p.AcceptanceForm.BillingStartDate,
			CustomerSignature: p.AcceptanceForm.CustomerSignature,
			LoggedByID:        p.AcceptanceForm.LoggedByID,
			ServiceID:         p.AcceptanceForm.ServiceID,
			CommissionedDate:  p.AcceptanceForm.CommissionedDate,
			SignedByName:      p.AcceptanceForm.SignedByName,
			SignedByTitle:     p.AcceptanceForm.SignedByTitle,
			ISPRepresentative: p.AcceptanceForm.ISPRepresentative,
			Notes:             p.AcceptanceForm.Notes,
			CreatedAt:         p.AcceptanceForm.CreatedAt,
		}
	}
	if p.DeletionRequest != nil {
		del := toDeletionResponse(*p.DeletionRequest)
		resp.DeletionRequest = &del
	}
	return resp
}

func toPnlResponse(p Pnl) pnlResponse {
	return pnlResponse{
		ID:                 p.ID,
		ProjectID:          p.ProjectID,
		SubmittedByID:      p.SubmittedByID,
		BoqCost:            p.BoqCost,
		OneTimeRevenue:     p.OneTimeRevenue,
		RecurringRevenue:   p.RecurringRevenue,
		ContractTermMonths: p.ContractTermMonths,
		GrossProfit:        p.GrossProfit,
		GrossMargin:        p.GrossMargin,
		ApprovalStatus:     p.ApprovalStatus,
		ApproverID:         p.ApproverID,
		ApprovalDate:       p.ApprovalDate,
		AdminComments:      p.AdminComments,
		DatePrepared:       p.DatePrepared,
	}
}

func toDeletionResponse(d DeletionRequest) deletionResponse {
	return deletionResponse{
		ID:               d.ID,
		ProjectID:        d.ProjectID,
		Reason:           d.Reason,
		RequestedByID:    d.RequestedByID,
		Status:           d.Status,
		RequestDate:      d.RequestDate,
		ResponseDate:     d.ResponseDate,
		ResponseComments: d.ResponseComments,
		RespondedByID:    d.RespondedByID,
	}
}

func toSummaryResponse(s Summary) summaryResponse {
	return summaryResponse{
		ID:               s.ID,
		ProjectName:      s.ProjectName,
		CustomerName:     s.CustomerName,
		Status:           s.Status,
		BillingStatus:    s.BillingStatus,
		SalesPersonID:    s.SalesPersonID,
		ProjectManagerID: s.ProjectManagerID,
		ProjectType:      s.ProjectType,
		ServiceType:      s.ServiceType,
		HasBOQ:           s.HasBOQ,
		PnlStatus:        s.PnlStatus,
		UpdatedAt:        s.UpdatedAt,
	}
}

type historyEntryResponse struct {
	ID         int64          `json:"id"`
	ActorID    int64          `json:"actorId"`
	Action     string         `json:"action"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

func toHistoryEntryResponse(entry shared.AuditLog) historyEntryResponse {
	return historyEntryResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		Meta:       entry.Meta,
		OccurredAt: entry.At,
	}
}

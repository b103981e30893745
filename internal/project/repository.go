package project

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fibertrail/fibertrail/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the write operations available inside a unit of work.
type TxRepository interface {
	InsertProject(ctx context.Context, p Project) (int64, error)
	InsertCRD(ctx context.Context, crd CRD) (int64, error)
	UpdateStatus(ctx context.Context, projectID int64, status Status) error
	SetProjectManager(ctx context.Context, projectID, pmID int64) error
	SetBillingStatus(ctx context.Context, projectID int64, status BillingStatus) error
	InsertBOQ(ctx context.Context, boq BOQ) (int64, error)
	ReplaceBOQ(ctx context.Context, boq BOQ) error
	InsertPnl(ctx context.Context, pnl Pnl) (int64, error)
	SetPnlDecision(ctx context.Context, pnlID int64, status ApprovalStatus, approverID int64, at time.Time, comments *string) error
	SetPnlReview(ctx context.Context, pnlID int64, comments *string) error
	ResetPnl(ctx context.Context, pnl Pnl) error
	InsertAcceptanceForm(ctx context.Context, form AcceptanceForm) (int64, error)
	InsertDeletionRequest(ctx context.Context, req DeletionRequest) (int64, error)
	SetDeletionDecision(ctx context.Context, requestID int64, status DeletionStatus, respondedBy int64, at time.Time, comments *string) error
	DeleteProjectCascade(ctx context.Context, projectID int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// WithProjectTx opens a unit of work that holds a row lock on the project for
// its whole duration. Every transition that touches a project goes through
// here, which serialises concurrent transitions on the same row. The callback
// receives the aggregate as read under the lock.
func (r *Repository) WithProjectTx(ctx context.Context, projectID int64, fn func(context.Context, TxRepository, Project) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx, `SELECT id FROM projects WHERE id=$1 FOR UPDATE`, projectID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProjectNotFound
			}
			return err
		}
		proj, err := loadProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		return fn(ctx, &txRepo{tx: tx}, proj)
	})
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// GetProject returns the full aggregate.
func (r *Repository) GetProject(ctx context.Context, id int64) (Project, error) {
	return loadProject(ctx, r.pool, id)
}

func loadProject(ctx context.Context, q queryer, id int64) (Project, error) {
	var p Project
	err := q.QueryRow(ctx, `SELECT id, project_name, customer_name, status, billing_status,
site_a_address, site_b_address, target_delivery_date, sales_person_id, project_manager_id, created_at, updated_at
FROM projects WHERE id=$1`, id).Scan(
		&p.ID, &p.ProjectName, &p.CustomerName, &p.Status, &p.BillingStatus,
		&p.SiteAAddress, &p.SiteBAddress, &p.TargetDeliveryDate, &p.SalesPersonID, &p.ProjectManagerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrProjectNotFound
		}
		return Project{}, err
	}

	crd := CRD{}
	err = q.QueryRow(ctx, `SELECT id, project_id, customer_contact, customer_phone, customer_email,
project_type, billing_trigger, service_type, bandwidth, sla_requirements, interface_type, redundancy, ip_requirements, notes, created_at
FROM crds WHERE project_id=$1`, id).Scan(
		&crd.ID, &crd.ProjectID, &crd.CustomerContact, &crd.CustomerPhone, &crd.CustomerEmail,
		&crd.ProjectType, &crd.BillingTrigger, &crd.ServiceType, &crd.Bandwidth, &crd.SLARequirements,
		&crd.InterfaceType, &crd.Redundancy, &crd.IPRequirements, &crd.Notes, &crd.CreatedAt)
	if err == nil {
		p.CRD = &crd
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Project{}, err
	}

	boq := BOQ{}
	err = q.QueryRow(ctx, `SELECT id, project_id, total_cost, notes, prepared_by_id, date_prepared
FROM boqs WHERE project_id=$1`, id).Scan(&boq.ID, &boq.ProjectID, &boq.TotalCost, &boq.Notes, &boq.PreparedByID, &boq.DatePrepared)
	if err == nil {
		p.BOQ = &boq
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Project{}, err
	}

	pnl := Pnl{}
	err = q.QueryRow(ctx, `SELECT id, project_id, submitted_by_id, boq_cost, one_time_revenue, recurring_revenue,
contract_term_months, gross_profit, gross_margin, approval_status, approver_id, approval_date, admin_comments, date_prepared
FROM pnls WHERE project_id=$1`, id).Scan(
		&pnl.ID, &pnl.ProjectID, &pnl.SubmittedByID, &pnl.BoqCost, &pnl.OneTimeRevenue, &pnl.RecurringRevenue,
		&pnl.ContractTermMonths, &pnl.GrossProfit, &pnl.GrossMargin, &pnl.ApprovalStatus, &pnl.ApproverID,
		&pnl.ApprovalDate, &pnl.AdminComments, &pnl.DatePrepared)
	if err == nil {
		p.Pnl = &pnl
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Project{}, err
	}

	form := AcceptanceForm{}
	err = q.QueryRow(ctx, `SELECT id, project_id, acceptance_date, billing_start_date, customer_signature, logged_by_id,
service_id, commissioned_date, signed_by_name, signed_by_title, isp_representative, notes, created_at
FROM acceptance_forms WHERE project_id=$1`, id).Scan(
		&form.ID, &form.ProjectID, &form.AcceptanceDate, &form.BillingStartDate, &form.CustomerSignature, &form.LoggedByID,
		&form.ServiceID, &form.CommissionedDate, &form.SignedByName, &form.SignedByTitle, &form.ISPRepresentative, &form.Notes, &form.CreatedAt)
	if err == nil {
		p.AcceptanceForm = &form
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Project{}, err
	}

	req := DeletionRequest{}
	err = q.QueryRow(ctx, `SELECT id, project_id, reason, requested_by_id, status, request_date, response_date, response_comments, responded_by_id
FROM deletion_requests WHERE project_id=$1`, id).Scan(
		&req.ID, &req.ProjectID, &req.Reason, &req.RequestedByID, &req.Status, &req.RequestDate,
		&req.ResponseDate, &req.ResponseComments, &req.RespondedByID)
	if err == nil {
		p.DeletionRequest = &req
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Project{}, err
	}

	return p, nil
}

// ListProjects returns summaries ordered by most recently updated.
func (r *Repository) ListProjects(ctx context.Context) ([]Summary, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.project_name, p.customer_name, p.status, p.billing_status,
p.sales_person_id, p.project_manager_id, c.project_type, c.service_type,
(b.id IS NOT NULL), pl.approval_status, p.updated_at
FROM projects p
LEFT JOIN crds c ON c.project_id = p.id
LEFT JOIN boqs b ON b.project_id = p.id
LEFT JOIN pnls pl ON pl.project_id = p.id
ORDER BY p.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.ProjectName, &s.CustomerName, &s.Status, &s.BillingStatus,
			&s.SalesPersonID, &s.ProjectManagerID, &s.ProjectType, &s.ServiceType, &s.HasBOQ, &s.PnlStatus, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetPnl fetches a P&L by its own id.
func (r *Repository) GetPnl(ctx context.Context, pnlID int64) (Pnl, error) {
	var pnl Pnl
	err := r.pool.QueryRow(ctx, `SELECT id, project_id, submitted_by_id, boq_cost, one_time_revenue, recurring_revenue,
contract_term_months, gross_profit, gross_margin, approval_status, approver_id, approval_date, admin_comments, date_prepared
FROM pnls WHERE id=$1`, pnlID).Scan(
		&pnl.ID, &pnl.ProjectID, &pnl.SubmittedByID, &pnl.BoqCost, &pnl.OneTimeRevenue, &pnl.RecurringRevenue,
		&pnl.ContractTermMonths, &pnl.GrossProfit, &pnl.GrossMargin, &pnl.ApprovalStatus, &pnl.ApproverID,
		&pnl.ApprovalDate, &pnl.AdminComments, &pnl.DatePrepared)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pnl{}, ErrPnlNotFound
		}
		return Pnl{}, err
	}
	return pnl, nil
}

// ListPendingPnls returns P&Ls awaiting approval, oldest first.
func (r *Repository) ListPendingPnls(ctx context.Context) ([]Pnl, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, project_id, submitted_by_id, boq_cost, one_time_revenue, recurring_revenue,
contract_term_months, gross_profit, gross_margin, approval_status, approver_id, approval_date, admin_comments, date_prepared
FROM pnls WHERE approval_status=$1 ORDER BY date_prepared ASC`, ApprovalPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pnls []Pnl
	for rows.Next() {
		var pnl Pnl
		if err := rows.Scan(&pnl.ID, &pnl.ProjectID, &pnl.SubmittedByID, &pnl.BoqCost, &pnl.OneTimeRevenue, &pnl.RecurringRevenue,
			&pnl.ContractTermMonths, &pnl.GrossProfit, &pnl.GrossMargin, &pnl.ApprovalStatus, &pnl.ApproverID,
			&pnl.ApprovalDate, &pnl.AdminComments, &pnl.DatePrepared); err != nil {
			return nil, err
		}
		pnls = append(pnls, pnl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pnls, nil
}

// GetDeletionRequest fetches a deletion request by id.
func (r *Repository) GetDeletionRequest(ctx context.Context, id int64) (DeletionRequest, error) {
	var req DeletionRequest
	err := r.pool.QueryRow(ctx, `SELECT id, project_id, reason, requested_by_id, status, request_date, response_date, response_comments, responded_by_id
FROM deletion_requests WHERE id=$1`, id).Scan(
		&req.ID, &req.ProjectID, &req.Reason, &req.RequestedByID, &req.Status, &req.RequestDate,
		&req.ResponseDate, &req.ResponseComments, &req.RespondedByID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeletionRequest{}, ErrRequestNotFound
		}
		return DeletionRequest{}, err
	}
	return req, nil
}

// ListDeletionRequests returns all deletion requests, newest first.
func (r *Repository) ListDeletionRequests(ctx context.Context) ([]DeletionRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, project_id, reason, requested_by_id, status, request_date, response_date, response_comments, responded_by_id
FROM deletion_requests ORDER BY request_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reqs []DeletionRequest
	for rows.Next() {
		var req DeletionRequest
		if err := rows.Scan(&req.ID, &req.ProjectID, &req.Reason, &req.RequestedByID, &req.Status, &req.RequestDate,
			&req.ResponseDate, &req.ResponseComments, &req.RespondedByID); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}

// Write operations

func (t *txRepo) InsertProject(ctx context.Context, p Project) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO projects (project_name, customer_name, status, billing_status,
site_a_address, site_b_address, target_delivery_date, sales_person_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		p.ProjectName, p.CustomerName, p.Status, p.BillingStatus,
		p.SiteAAddress, p.SiteBAddress, p.TargetDeliveryDate, p.SalesPersonID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateName
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertCRD(ctx context.Context, crd CRD) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO crds (project_id, customer_contact, customer_phone, customer_email,
project_type, billing_trigger, service_type, bandwidth, sla_requirements, interface_type, redundancy, ip_requirements, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW()) RETURNING id`,
		crd.ProjectID, crd.CustomerContact, crd.CustomerPhone, crd.CustomerEmail,
		crd.ProjectType, crd.BillingTrigger, crd.ServiceType, crd.Bandwidth, crd.SLARequirements,
		crd.InterfaceType, crd.Redundancy, crd.IPRequirements, crd.Notes).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateStatus(ctx context.Context, projectID int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE projects SET status=$2, updated_at=NOW() WHERE id=$1`, projectID, status)
	return err
}

func (t *txRepo) SetProjectManager(ctx context.Context, projectID, pmID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE projects SET project_manager_id=$2, updated_at=NOW() WHERE id=$1`, projectID, pmID)
	return err
}

func (t *txRepo) SetBillingStatus(ctx context.Context, projectID int64, status BillingStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE projects SET billing_status=$2, updated_at=NOW() WHERE id=$1`, projectID, status)
	return err
}

func (t *txRepo) InsertBOQ(ctx context.Context, boq BOQ) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO boqs (project_id, total_cost, notes, prepared_by_id, date_prepared)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		boq.ProjectID, boq.TotalCost, boq.Notes, boq.PreparedByID, boq.DatePrepared).Scan(&id)
	return id, err
}

func (t *txRepo) ReplaceBOQ(ctx context.Context, boq BOQ) error {
	_, err := t.tx.Exec(ctx, `UPDATE boqs SET total_cost=$2, notes=$3, prepared_by_id=$4, date_prepared=$5 WHERE id=$1`,
		boq.ID, boq.TotalCost, boq.Notes, boq.PreparedByID, boq.DatePrepared)
	return err
}

func (t *txRepo) InsertPnl(ctx context.Context, pnl Pnl) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO pnls (project_id, submitted_by_id, boq_cost, one_time_revenue, recurring_revenue,
contract_term_months, gross_profit, gross_margin, approval_status, date_prepared)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		pnl.ProjectID, pnl.SubmittedByID, pnl.BoqCost, pnl.OneTimeRevenue, pnl.RecurringRevenue,
		pnl.ContractTermMonths, pnl.GrossProfit, pnl.GrossMargin, pnl.ApprovalStatus, pnl.DatePrepared).Scan(&id)
	return id, err
}

func (t *txRepo) SetPnlDecision(ctx context.Context, pnlID int64, status ApprovalStatus, approverID int64, at time.Time, comments *string) error {
	_, err := t.tx.Exec(ctx, `UPDATE pnls SET approval_status=$2, approver_id=$3, approval_date=$4, admin_comments=$5 WHERE id=$1`,
		pnlID, status, approverID, at, comments)
	return err
}

func (t *txRepo) SetPnlReview(ctx context.Context, pnlID int64, comments *string) error {
	_, err := t.tx.Exec(ctx, `UPDATE pnls SET approval_status=$2, admin_comments=COALESCE($3, admin_comments) WHERE id=$1`,
		pnlID, ApprovalUnderReview, comments)
	return err
}

func (t *txRepo) ResetPnl(ctx context.Context, pnl Pnl) error {
	_, err := t.tx.Exec(ctx, `UPDATE pnls SET boq_cost=$2, gross_profit=$3, gross_margin=$4,
approval_status=$5, approver_id=NULL, approval_date=NULL WHERE id=$1`,
		pnl.ID, pnl.BoqCost, pnl.GrossProfit, pnl.GrossMargin, ApprovalPending)
	return err
}

func (t *txRepo) InsertAcceptanceForm(ctx context.Context, form AcceptanceForm) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO acceptance_forms (project_id, acceptance_date, billing_start_date, customer_signature,
logged_by_id, service_id, commissioned_date, signed_by_name, signed_by_title, isp_representative, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW()) RETURNING id`,
		form.ProjectID, form.AcceptanceDate, form.BillingStartDate, form.CustomerSignature,
		form.LoggedByID, form.ServiceID, form.CommissionedDate, form.SignedByName, form.SignedByTitle,
		form.ISPRepresentative, form.Notes).Scan(&id)
	return id, err
}

func (t *txRepo) InsertDeletionRequest(ctx context.Context, req DeletionRequest) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO deletion_requests (project_id, reason, requested_by_id, status, request_date)
VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		req.ProjectID, req.Reason, req.RequestedByID, req.Status).Scan(&id)
	return id, err
}

func (t *txRepo) SetDeletionDecision(ctx context.Context, requestID int64, status DeletionStatus, respondedBy int64, at time.Time, comments *string) error {
	_, err := t.tx.Exec(ctx, `UPDATE deletion_requests SET status=$2, responded_by_id=$3, response_date=$4, response_comments=$5 WHERE id=$1`,
		requestID, status, respondedBy, at, comments)
	return err
}

// DeleteProjectCascade removes a project and every dependent row.
func (t *txRepo) DeleteProjectCascade(ctx context.Context, projectID int64) error {
	statements := []string{
		`DELETE FROM notifications WHERE project_id=$1`,
		`DELETE FROM crds WHERE project_id=$1`,
		`DELETE FROM boqs WHERE project_id=$1`,
		`DELETE FROM pnls WHERE project_id=$1`,
		`DELETE FROM acceptance_forms WHERE project_id=$1`,
		`DELETE FROM deletion_requests WHERE project_id=$1`,
		`DELETE FROM projects WHERE id=$1`,
	}
	for _, stmt := range statements {
		if _, err := t.tx.Exec(ctx, stmt, projectID); err != nil {
			return err
		}
	}
	return nil
}

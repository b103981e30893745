package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeRepo struct {
	projects map[int64]*Project

	nextProject int64
	nextChild   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{projects: make(map[int64]*Project), nextProject: 1, nextChild: 1}
}

func cloneProject(p Project) Project {
	out := p
	if p.CRD != nil {
		crd := *p.CRD
		out.CRD = &crd
	}
	if p.BOQ != nil {
		boq := *p.BOQ
		out.BOQ = &boq
	}
	if p.Pnl != nil {
		pnl := *p.Pnl
		out.Pnl = &pnl
	}
	if p.AcceptanceForm != nil {
		form := *p.AcceptanceForm
		out.AcceptanceForm = &form
	}
	if p.DeletionRequest != nil {
		req := *p.DeletionRequest
		out.DeletionRequest = &req
	}
	return out
}

func (r *fakeRepo) snapshot() map[int64]*Project {
	staged := make(map[int64]*Project, len(r.projects))
	for id, p := range r.projects {
		cp := cloneProject(*p)
		staged[id] = &cp
	}
	return staged
}

type fakeTx struct {
	repo   *fakeRepo
	staged map[int64]*Project
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &fakeTx{repo: r, staged: r.snapshot()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.projects = tx.staged
	return nil
}

func (r *fakeRepo) WithProjectTx(ctx context.Context, projectID int64, fn func(context.Context, TxRepository, Project) error) error {
	tx := &fakeTx{repo: r, staged: r.snapshot()}
	p, ok := tx.staged[projectID]
	if !ok {
		return ErrProjectNotFound
	}
	if err := fn(ctx, tx, cloneProject(*p)); err != nil {
		return err
	}
	r.projects = tx.staged
	return nil
}

func (r *fakeRepo) GetProject(ctx context.Context, id int64) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return cloneProject(*p), nil
}

func (r *fakeRepo) ListProjects(ctx context.Context) ([]Summary, error) {
	var out []Summary
	for _, p := range r.projects {
		s := Summary{
			ID: p.ID, ProjectName: p.ProjectName, CustomerName: p.CustomerName,
			Status: p.Status, BillingStatus: p.BillingStatus,
			SalesPersonID: p.SalesPersonID, ProjectManagerID: p.ProjectManagerID,
			HasBOQ: p.BOQ != nil, UpdatedAt: p.UpdatedAt,
		}
		if p.Pnl != nil {
			status := p.Pnl.ApprovalStatus
			s.PnlStatus = &status
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeRepo) GetPnl(ctx context.Context, pnlID int64) (Pnl, error) {
	for _, p := range r.projects {
		if p.Pnl != nil && p.Pnl.ID == pnlID {
			return *p.Pnl, nil
		}
	}
	return Pnl{}, ErrPnlNotFound
}

func (r *fakeRepo) ListPendingPnls(ctx context.Context) ([]Pnl, error) {
	var out []Pnl
	for _, p := range r.projects {
		if p.Pnl != nil && p.Pnl.ApprovalStatus == ApprovalPending {
			out = append(out, *p.Pnl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DatePrepared.Before(out[j].DatePrepared) })
	return out, nil
}

func (r *fakeRepo) GetDeletionRequest(ctx context.Context, id int64) (DeletionRequest, error) {
	for _, p := range r.projects {
		if p.DeletionRequest != nil && p.DeletionRequest.ID == id {
			return *p.DeletionRequest, nil
		}
	}
	return DeletionRequest{}, ErrRequestNotFound
}

func (r *fakeRepo) ListDeletionRequests(ctx context.Context) ([]DeletionRequest, error) {
	var out []DeletionRequest
	for _, p := range r.projects {
		if p.DeletionRequest != nil {
			out = append(out, *p.DeletionRequest)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestDate.After(out[j].RequestDate) })
	return out, nil
}

func (t *fakeTx) nextID() int64 {
	id := t.repo.nextChild
	t.repo.nextChild++
	return id
}

func (t *fakeTx) InsertProject(ctx context.Context, p Project) (int64, error) {
	for _, existing := range t.staged {
		if existing.ProjectName == p.ProjectName {
			return 0, ErrDuplicateName
		}
	}
	p.ID = t.repo.nextProject
	t.repo.nextProject++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	t.staged[p.ID] = &p
	return p.ID, nil
}

func (t *fakeTx) InsertCRD(ctx context.Context, crd CRD) (int64, error) {
	crd.ID = t.nextID()
	crd.CreatedAt = time.Now()
	t.staged[crd.ProjectID].CRD = &crd
	return crd.ID, nil
}

func (t *fakeTx) UpdateStatus(ctx context.Context, projectID int64, status Status) error {
	p, ok := t.staged[projectID]
	if !ok {
		return ErrProjectNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (t *fakeTx) SetProjectManager(ctx context.Context, projectID, pmID int64) error {
	t.staged[projectID].ProjectManagerID = &pmID
	return nil
}

func (t *fakeTx) SetBillingStatus(ctx context.Context, projectID int64, status BillingStatus) error {
	t.staged[projectID].BillingStatus = &status
	return nil
}

func (t *fakeTx) InsertBOQ(ctx context.Context, boq BOQ) (int64, error) {
	boq.ID = t.nextID()
	t.staged[boq.ProjectID].BOQ = &boq
	return boq.ID, nil
}

func (t *fakeTx) ReplaceBOQ(ctx context.Context, boq BOQ) error {
	for _, p := range t.staged {
		if p.BOQ != nil && p.BOQ.ID == boq.ID {
			*p.BOQ = boq
			return nil
		}
	}
	return errors.New("boq not found")
}

func (t *fakeTx) InsertPnl(ctx context.Context, pnl Pnl) (int64, error) {
	pnl.ID = t.nextID()
	t.staged[pnl.ProjectID].Pnl = &pnl
	return pnl.ID, nil
}

func (t *fakeTx) SetPnlDecision(ctx context.Context, pnlID int64, status ApprovalStatus, approverID int64, at time.Time, comments *string) error {
	for _, p := range t.staged {
		if p.Pnl != nil && p.Pnl.ID == pnlID {
			p.Pnl.ApprovalStatus = status
			p.Pnl.ApproverID = &approverID
			p.Pnl.ApprovalDate = &at
			p.Pnl.AdminComments = comments
			return nil
		}
	}
	return ErrPnlNotFound
}

func (t *fakeTx) SetPnlReview(ctx context.Context, pnlID int64, comments *string) error {
	for _, p := range t.staged {
		if p.Pnl != nil && p.Pnl.ID == pnlID {
			p.Pnl.ApprovalStatus = ApprovalUnderReview
			if comments != nil {
				p.Pnl.AdminComments = comments
			}
			return nil
		}
	}
	return ErrPnlNotFound
}

func (t *fakeTx) ResetPnl(ctx context.Context, pnl Pnl) error {
	for _, p := range t.staged {
		if p.Pnl != nil && p.Pnl.ID == pnl.ID {
			p.Pnl.BoqCost = pnl.BoqCost
			p.Pnl.GrossProfit = pnl.GrossProfit
			p.Pnl.GrossMargin = pnl.GrossMargin
			p.Pnl.ApprovalStatus = ApprovalPending
			p.Pnl.ApproverID = nil
			p.Pnl.ApprovalDate = nil
			return nil
		}
	}
	return ErrPnlNotFound
}

func (t *fakeTx) InsertAcceptanceForm(ctx context.Context, form AcceptanceForm) (int64, error) {
	form.ID = t.nextID()
	form.CreatedAt = time.Now()
	t.staged[form.ProjectID].AcceptanceForm = &form
	return form.ID, nil
}

func (t *fakeTx) InsertDeletionRequest(ctx context.Context, req DeletionRequest) (int64, error) {
	req.ID = t.nextID()
	req.RequestDate = time.Now()
	t.staged[req.ProjectID].DeletionRequest = &req
	return req.ID, nil
}

func (t *fakeTx) SetDeletionDecision(ctx context.Context, requestID int64, status DeletionStatus, respondedBy int64, at time.Time, comments *string) error {
	for _, p := range t.staged {
		if p.DeletionRequest != nil && p.DeletionRequest.ID == requestID {
			p.DeletionRequest.Status = status
			p.DeletionRequest.RespondedByID = &respondedBy
			p.DeletionRequest.ResponseDate = &at
			p.DeletionRequest.ResponseComments = comments
			return nil
		}
	}
	return ErrRequestNotFound
}

func (t *fakeTx) DeleteProjectCascade(ctx context.Context, projectID int64) error {
	delete(t.staged, projectID)
	return nil
}

type fakeUsers struct {
	known map[int64]bool
	roles map[shared.Role][]int64
}

func (u *fakeUsers) Exists(ctx context.Context, id int64) (bool, error) {
	return u.known[id], nil
}

func (u *fakeUsers) IDsByRole(ctx context.Context, role shared.Role) ([]int64, error) {
	return u.roles[role], nil
}

type fakeNotifier struct {
	notes []Note
}

func (n *fakeNotifier) Dispatch(ctx context.Context, actorID int64, notes ...Note) {
	n.notes = append(n.notes, notes...)
}

func (n *fakeNotifier) titles() []string {
	var out []string
	for _, note := range n.notes {
		out = append(out, note.Title)
	}
	return out
}

type fakeAudit struct {
	entries []shared.AuditLog
}

func (a *fakeAudit) Record(ctx context.Context, log shared.AuditLog) error {
	log.ID = int64(len(a.entries) + 1)
	if log.At.IsZero() {
		log.At = time.Now()
	}
	a.entries = append(a.entries, log)
	return nil
}

func (a *fakeAudit) List(ctx context.Context, entity string, ref uuid.UUID) ([]shared.AuditLog, error) {
	var out []shared.AuditLog
	for _, e := range a.entries {
		if e.Entity == entity && e.RefID == ref {
			out = append(out, e)
		}
	}
	return out, nil
}

// ============================================================================
// HELPERS
// ============================================================================

var (
	admin   = shared.Identity{UserID: 1, Role: shared.RoleAdmin}
	sales   = shared.Identity{UserID: 2, Role: shared.RoleSales}
	survey  = shared.Identity{UserID: 3, Role: shared.RoleProjectsSurvey}
	pAdmin  = shared.Identity{UserID: 4, Role: shared.RoleProjectsAdmin}
	finance = shared.Identity{UserID: 5, Role: shared.RoleFinance}
)

func newTestService() (*Service, *fakeRepo, *fakeNotifier, *fakeUsers) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	users := &fakeUsers{
		known: map[int64]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true},
		roles: map[shared.Role][]int64{
			shared.RoleAdmin:   {1},
			shared.RoleFinance: {5},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, users, notifier, nil, logger)
	return svc, repo, notifier, users
}

func createTestProject(t *testing.T, svc *Service, name string) Project {
	t.Helper()
	proj, err := svc.Create(context.Background(), sales, CreateProjectInput{
		ProjectName:    name,
		CustomerName:   "Acme Corp",
		ProjectType:    "New Installation",
		BillingTrigger: "On Acceptance",
		ServiceType:    "Dedicated Internet",
	})
	require.NoError(t, err)
	return proj
}

func advanceToPendingApproval(t *testing.T, svc *Service, name string, totalCost float64) Project {
	t.Helper()
	ctx := context.Background()
	proj := createTestProject(t, svc, name)
	proj, err := svc.CreateBOQ(ctx, survey, proj.ID, BOQInput{TotalCost: totalCost})
	require.NoError(t, err)
	proj, err = svc.CreatePnl(ctx, sales, proj.ID, PnlInput{
		OneTimeRevenue:     500,
		RecurringRevenue:   200,
		ContractTermMonths: 12,
	})
	require.NoError(t, err)
	return proj
}

func advanceToInstallation(t *testing.T, svc *Service, name string) Project {
	t.Helper()
	ctx := context.Background()
	proj := advanceToPendingApproval(t, svc, name, 1000)
	_, err := svc.ApprovePnl(ctx, admin, proj.Pnl.ID, nil)
	require.NoError(t, err)
	proj, err = svc.InitiateInstallation(ctx, sales, proj.ID)
	require.NoError(t, err)
	return proj
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateProjectFlow(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := createTestProject(t, svc, "Test A")

	assert.Equal(t, StatusCRDSubmitted, proj.Status)
	assert.Equal(t, sales.UserID, proj.SalesPersonID)
	require.NotNil(t, proj.CRD)
	assert.Nil(t, proj.BOQ)
	assert.Nil(t, proj.Pnl)
}

func TestCreateProjectDuplicateName(t *testing.T) {
	svc, _, _, _ := newTestService()
	createTestProject(t, svc, "Test A")

	_, err := svc.Create(context.Background(), sales, CreateProjectInput{
		ProjectName:    "Test A",
		CustomerName:   "Other Corp",
		ProjectType:    "New Installation",
		BillingTrigger: "On Acceptance",
		ServiceType:    "Dedicated Internet",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestCostingAndPnlDerivation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	proj := createTestProject(t, svc, "Test A")
	proj, err := svc.CreateBOQ(ctx, survey, proj.ID, BOQInput{TotalCost: 1000})
	require.NoError(t, err)
	assert.Equal(t, StatusBOQReady, proj.Status)

	proj, err = svc.CreatePnl(ctx, sales, proj.ID, PnlInput{
		OneTimeRevenue:     500,
		RecurringRevenue:   200,
		ContractTermMonths: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, proj.Status)
	require.NotNil(t, proj.Pnl)
	assert.Equal(t, 1000.0, proj.Pnl.BoqCost)
	assert.Equal(t, 1900.0, proj.Pnl.GrossProfit)
	assert.InDelta(t, 65.5, proj.Pnl.GrossMargin, 0.1)
	assert.Equal(t, ApprovalPending, proj.Pnl.ApprovalStatus)
}

func TestCreatePnlRequiresBOQ(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := createTestProject(t, svc, "Test A")

	_, err := svc.CreatePnl(context.Background(), sales, proj.ID, PnlInput{
		OneTimeRevenue: 100, ContractTermMonths: 12,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestCreateBOQStatusGuard(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	_, err := svc.CreateBOQ(ctx, survey, proj.ID, BOQInput{TotalCost: 500})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestApprovePnl(t *testing.T) {
	svc, _, notifier, _ := newTestService()
	ctx := context.Background()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	// Scenario: non-admin first, then admin succeeds.
	_, err := svc.ApprovePnl(ctx, sales, proj.Pnl.ID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	updated, err := svc.ApprovePnl(ctx, admin, proj.Pnl.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)
	assert.Equal(t, ApprovalApproved, updated.Pnl.ApprovalStatus)
	require.NotNil(t, updated.Pnl.ApproverID)
	assert.Equal(t, admin.UserID, *updated.Pnl.ApproverID)
	assert.NotNil(t, updated.Pnl.ApprovalDate)

	// Submitter is told, with the contract figures grouped for reading.
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, sales.UserID, notifier.notes[0].RecipientID)
	assert.Contains(t, notifier.notes[0].Message, "2,900.00 total revenue")
}

func TestApprovePnlTwiceConflict(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	first, err := svc.ApprovePnl(ctx, admin, proj.Pnl.ID, nil)
	require.NoError(t, err)

	_, err = svc.ApprovePnl(ctx, admin, proj.Pnl.ID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))

	// State equals the state after exactly one approval.
	after, err := repo.GetProject(ctx, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, after.Status)
	assert.Equal(t, first.Pnl.ApprovalStatus, after.Pnl.ApprovalStatus)
	assert.Equal(t, *first.Pnl.ApproverID, *after.Pnl.ApproverID)
}

func TestRejectPnlRequiresComments(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	_, err := svc.RejectPnl(ctx, admin, proj.Pnl.ID, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	updated, err := svc.RejectPnl(ctx, admin, proj.Pnl.ID, "bad numbers")
	require.NoError(t, err)
	assert.Equal(t, StatusPnlRejected, updated.Status)
	assert.Equal(t, ApprovalRejected, updated.Pnl.ApprovalStatus)
	require.NotNil(t, updated.Pnl.AdminComments)
	assert.Equal(t, "bad numbers", *updated.Pnl.AdminComments)
}

func TestReviewAndBOQUpdateCycle(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	_, err := svc.RejectPnl(ctx, admin, proj.Pnl.ID, "bad numbers")
	require.NoError(t, err)

	// Original submitter sends it back for review; no new comment keeps the old one.
	updated, err := svc.ReviewPnl(ctx, sales, proj.Pnl.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPnlUnderReview, updated.Status)
	assert.Equal(t, ApprovalUnderReview, updated.Pnl.ApprovalStatus)
	require.NotNil(t, updated.Pnl.AdminComments)
	assert.Equal(t, "bad numbers", *updated.Pnl.AdminComments)

	// Survey replaces the BOQ; P&L recalculates and resets.
	updated, err = svc.UpdateBOQForReview(ctx, survey, proj.ID, BOQInput{TotalCost: 800})
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, updated.Status)
	assert.Equal(t, 800.0, updated.BOQ.TotalCost)
	assert.Equal(t, 800.0, updated.Pnl.BoqCost)
	assert.Equal(t, 2100.0, updated.Pnl.GrossProfit)
	assert.Equal(t, ApprovalPending, updated.Pnl.ApprovalStatus)
	assert.Nil(t, updated.Pnl.ApproverID)
	assert.Nil(t, updated.Pnl.ApprovalDate)
}

func TestReviewPnlOnlyWhenRejected(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	_, err := svc.ReviewPnl(context.Background(), sales, proj.Pnl.ID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestUpdateBOQForReviewStatusGuard(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	_, err := svc.UpdateBOQForReview(context.Background(), survey, proj.ID, BOQInput{TotalCost: 800})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestInitiateInstallationOwnership(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)
	_, err := svc.ApprovePnl(ctx, admin, proj.Pnl.ID, nil)
	require.NoError(t, err)

	otherSales := shared.Identity{UserID: 99, Role: shared.RoleSales}
	_, err = svc.InitiateInstallation(ctx, otherSales, proj.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	updated, err := svc.InitiateInstallation(ctx, sales, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInstallationPending, updated.Status)
}

func TestInitiateInstallationRequiresApproved(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	_, err := svc.InitiateInstallation(context.Background(), admin, proj.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestAssignProjectManager(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	proj := advanceToInstallation(t, svc, "Test A")

	// Unknown user.
	_, err := svc.AssignProjectManager(ctx, pAdmin, proj.ID, 1234)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	updated, err := svc.AssignProjectManager(ctx, pAdmin, proj.ID, 6)
	require.NoError(t, err)
	require.NotNil(t, updated.ProjectManagerID)
	assert.Equal(t, int64(6), *updated.ProjectManagerID)

	// Only once.
	_, err = svc.AssignProjectManager(ctx, pAdmin, proj.ID, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestAssignProjectManagerOutsideInstallation(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := createTestProject(t, svc, "Test A")

	_, err := svc.AssignProjectManager(context.Background(), pAdmin, proj.ID, 6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestUpdateStatusEnforcesTransitionMap(t *testing.T) {
	svc, _, notifier, _ := newTestService()
	ctx := context.Background()
	proj := advanceToInstallation(t, svc, "Test A")

	// Jumping ahead is refused.
	_, err := svc.UpdateStatus(ctx, pAdmin, proj.ID, StatusUATPending)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))

	// Completion is never a manual target.
	_, err = svc.UpdateStatus(ctx, pAdmin, proj.ID, StatusCompleted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))

	updated, err := svc.UpdateStatus(ctx, pAdmin, proj.ID, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)

	// Salesperson is told about the move.
	require.NotEmpty(t, notifier.notes)
	assert.Equal(t, sales.UserID, notifier.notes[len(notifier.notes)-1].RecipientID)
}

func TestSubmitAcceptance(t *testing.T) {
	svc, _, notifier, _ := newTestService()
	ctx := context.Background()
	proj := advanceToInstallation(t, svc, "Test A")
	proj, err := svc.UpdateStatus(ctx, pAdmin, proj.ID, StatusInProgress)
	require.NoError(t, err)
	notifier.notes = nil

	updated, err := svc.SubmitAcceptance(ctx, pAdmin, proj.ID, AcceptanceInput{
		AcceptanceDate:    time.Now(),
		BillingStartDate:  time.Now().AddDate(0, 0, 7),
		CustomerSignature: "sig://acme-signoff",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	require.NotNil(t, updated.BillingStatus)
	assert.Equal(t, BillingPending, *updated.BillingStatus)
	require.NotNil(t, updated.AcceptanceForm)

	// Salesperson gets completion plus billing-ready.
	var toSales int
	for _, note := range notifier.notes {
		if note.RecipientID == sales.UserID {
			toSales++
		}
	}
	assert.Equal(t, 2, toSales, "titles: %v", notifier.titles())

	// Only once.
	_, err = svc.SubmitAcceptance(ctx, pAdmin, proj.ID, AcceptanceInput{
		AcceptanceDate:    time.Now(),
		BillingStartDate:  time.Now(),
		CustomerSignature: "sig://again",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestSubmitAcceptanceStatusGuard(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	_, err := svc.SubmitAcceptance(context.Background(), pAdmin, proj.ID, AcceptanceInput{
		AcceptanceDate:    time.Now(),
		BillingStartDate:  time.Now(),
		CustomerSignature: "sig://early",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func completeProject(t *testing.T, svc *Service, name string) Project {
	t.Helper()
	ctx := context.Background()
	proj := advanceToInstallation(t, svc, name)
	proj, err := svc.UpdateStatus(ctx, pAdmin, proj.ID, StatusInProgress)
	require.NoError(t, err)
	proj, err = svc.SubmitAcceptance(ctx, pAdmin, proj.ID, AcceptanceInput{
		AcceptanceDate:    time.Now(),
		BillingStartDate:  time.Now(),
		CustomerSignature: "sig://done",
	})
	require.NoError(t, err)
	return proj
}

func TestBillingFlow(t *testing.T) {
	svc, _, notifier, _ := newTestService()
	ctx := context.Background()
	proj := completeProject(t, svc, "Test A")
	notifier.notes = nil

	updated, err := svc.InitiateBilling(ctx, finance, proj.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.BillingStatus)
	assert.Equal(t, BillingInitiated, *updated.BillingStatus)

	// Finance team and the salesperson are told.
	recipients := map[int64]bool{}
	for _, note := range notifier.notes {
		recipients[note.RecipientID] = true
	}
	assert.True(t, recipients[finance.UserID])
	assert.True(t, recipients[sales.UserID])

	// No double initiate.
	_, err = svc.InitiateBilling(ctx, finance, proj.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))

	updated, err = svc.CompleteBilling(ctx, finance, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, BillingBilled, *updated.BillingStatus)
}

func TestInitiateBillingRequiresCompletion(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := advanceToInstallation(t, svc, "Test A")

	_, err := svc.InitiateBilling(context.Background(), finance, proj.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestCompleteBillingRequiresInitiated(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := completeProject(t, svc, "Test A")

	_, err := svc.CompleteBilling(context.Background(), finance, proj.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestAdminDeletesImmediately(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	proj := advanceToPendingApproval(t, svc, "Test A", 1000)

	outcome, err := svc.RequestDeletion(ctx, admin, proj.ID, "")
	require.NoError(t, err)
	assert.True(t, outcome.Deleted)

	_, err = repo.GetProject(ctx, proj.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestSalesDeletionRequestFlow(t *testing.T) {
	svc, repo, notifier, _ := newTestService()
	ctx := context.Background()
	proj := createTestProject(t, svc, "Test A")
	notifier.notes = nil

	outcome, err := svc.RequestDeletion(ctx, sales, proj.ID, "customer cancelled")
	require.NoError(t, err)
	assert.False(t, outcome.Deleted)
	require.NotNil(t, outcome.Request)
	assert.Equal(t, DeletionPending, outcome.Request.Status)

	// Admins are told.
	require.NotEmpty(t, notifier.notes)
	assert.Equal(t, admin.UserID, notifier.notes[0].RecipientID)

	// At most one open request.
	_, err = svc.RequestDeletion(ctx, sales, proj.ID, "again")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))

	// Approval cascades the whole aggregate away.
	err = svc.ApproveDeletion(ctx, admin, outcome.Request.ID)
	require.NoError(t, err)
	_, err = repo.GetProject(ctx, proj.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	_, err = repo.GetDeletionRequest(ctx, outcome.Request.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestRejectDeletionKeepsProject(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	proj := createTestProject(t, svc, "Test A")

	outcome, err := svc.RequestDeletion(ctx, sales, proj.ID, "customer cancelled")
	require.NoError(t, err)

	_, err = svc.RejectDeletion(ctx, admin, outcome.Request.ID, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	rejected, err := svc.RejectDeletion(ctx, admin, outcome.Request.ID, "keep it")
	require.NoError(t, err)
	assert.Equal(t, DeletionRejected, rejected.Status)
	require.NotNil(t, rejected.ResponseComments)
	assert.Equal(t, "keep it", *rejected.ResponseComments)

	after, err := repo.GetProject(ctx, proj.ID)
	require.NoError(t, err)
	require.NotNil(t, after.DeletionRequest)
	assert.Equal(t, DeletionRejected, after.DeletionRequest.Status)

	// A decided request cannot be decided again.
	err = svc.ApproveDeletion(ctx, admin, outcome.Request.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestListPendingPnlsAdminOnly(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	advanceToPendingApproval(t, svc, "Test A", 1000)

	_, err := svc.ListPendingPnls(ctx, sales)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	pnls, err := svc.ListPendingPnls(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pnls, 1)
	assert.Equal(t, ApprovalPending, pnls[0].ApprovalStatus)
}

func TestProjectHistory(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	users := &fakeUsers{
		known: map[int64]bool{1: true, 2: true, 3: true, 4: true},
		roles: map[shared.Role][]int64{shared.RoleAdmin: {1}},
	}
	audit := &fakeAudit{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, users, notifier, audit, logger)
	ctx := context.Background()

	proj := advanceToPendingApproval(t, svc, "Test A", 1000)
	_, err := svc.ApprovePnl(ctx, admin, proj.Pnl.ID, nil)
	require.NoError(t, err)

	// Reads are restricted to project admins and admins.
	_, err = svc.History(ctx, sales, proj.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	entries, err := svc.History(ctx, pAdmin, proj.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Action)
	}
	assert.Equal(t, []string{
		string(ActionCreateProject),
		string(ActionCreateBOQ),
		string(ActionCreatePnl),
		string(ActionApprovePnl),
	}, got)

	_, err = svc.History(ctx, admin, 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestProjectHistoryWithoutAuditStorage(t *testing.T) {
	svc, _, _, _ := newTestService()
	proj := createTestProject(t, svc, "Test A")

	entries, err := svc.History(context.Background(), admin, proj.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

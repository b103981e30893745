package project

import (
	"fmt"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// Action names a guarded workflow transition.
type Action string

const (
	ActionCreateProject      Action = "project.create"
	ActionCreateBOQ          Action = "boq.create"
	ActionCreatePnl          Action = "pnl.create"
	ActionApprovePnl         Action = "pnl.approve"
	ActionRejectPnl          Action = "pnl.reject"
	ActionReviewPnl          Action = "pnl.review"
	ActionUpdateBOQForReview Action = "boq.update_for_review"
	ActionInitiateInstall    Action = "project.initiate_installation"
	ActionAssignPM           Action = "project.assign_pm"
	ActionUpdateStatus       Action = "project.update_status"
	ActionSubmitAcceptance   Action = "project.submit_acceptance"
	ActionInitiateBilling    Action = "billing.initiate"
	ActionCompleteBilling    Action = "billing.complete"
	ActionRequestDeletion    Action = "deletion.request"
	ActionApproveDeletion    Action = "deletion.approve"
	ActionRejectDeletion     Action = "deletion.reject"
	ActionListPendingPnls    Action = "pnl.list_pending"
	ActionListDeletions      Action = "deletion.list"
	ActionViewHistory        Action = "project.view_history"
)

// GuardContext carries the entity state an ownership predicate may inspect.
// Zero values are fine for actions whose rule ignores them.
type GuardContext struct {
	SalesPersonID  int64
	PnlSubmitterID int64
}

type predicate func(id shared.Identity, gc GuardContext) bool

func anyOf(roles ...shared.Role) predicate {
	return func(id shared.Identity, _ GuardContext) bool {
		return id.Role.In(roles...)
	}
}

func adminOnly(id shared.Identity, _ GuardContext) bool {
	return id.Role == shared.RoleAdmin
}

func adminOrAssignedSales(id shared.Identity, gc GuardContext) bool {
	if id.Role == shared.RoleAdmin {
		return true
	}
	return id.Role == shared.RoleSales && id.UserID == gc.SalesPersonID
}

// guards is the single declarative table mapping every workflow action to its
// role/ownership predicate. Evaluated once per request, before any mutation.
var guards = map[Action]predicate{
	ActionCreateProject: anyOf(shared.RoleSales, shared.RoleAdmin),
	ActionCreateBOQ:     anyOf(shared.RoleProjectsAdmin, shared.RoleProjectsSurvey, shared.RoleAdmin),
	ActionCreatePnl:     anyOf(shared.RoleSales, shared.RoleAdmin),
	ActionApprovePnl:    adminOnly,
	ActionRejectPnl:     adminOnly,
	ActionReviewPnl: func(id shared.Identity, gc GuardContext) bool {
		if id.Role == shared.RoleAdmin {
			return true
		}
		return id.Role == shared.RoleSales && id.UserID == gc.PnlSubmitterID
	},
	ActionUpdateBOQForReview: anyOf(shared.RoleProjectsSurvey, shared.RoleProjectsAdmin, shared.RoleAdmin),
	ActionInitiateInstall:    adminOrAssignedSales,
	ActionAssignPM:           anyOf(shared.RoleProjectsAdmin, shared.RoleAdmin),
	ActionUpdateStatus:       anyOf(shared.RoleProjectsAdmin, shared.RoleAdmin),
	ActionSubmitAcceptance:   anyOf(shared.RoleProjectsAdmin, shared.RoleAdmin),
	ActionInitiateBilling: func(id shared.Identity, gc GuardContext) bool {
		if id.Role.In(shared.RoleAdmin, shared.RoleFinance) {
			return true
		}
		return id.UserID == gc.SalesPersonID
	},
	ActionCompleteBilling: anyOf(shared.RoleFinance, shared.RoleAdmin),
	ActionRequestDeletion: adminOrAssignedSales,
	ActionApproveDeletion: adminOnly,
	ActionRejectDeletion:  adminOnly,
	ActionListPendingPnls: adminOnly,
	ActionListDeletions:   adminOnly,
	ActionViewHistory:     anyOf(shared.RoleProjectsAdmin, shared.RoleAdmin),
}

// Authorize evaluates the guard for action. It is a pure function of the
// caller identity and the supplied context; it never touches storage.
func Authorize(id shared.Identity, action Action, gc GuardContext) error {
	rule, ok := guards[action]
	if !ok {
		return fmt.Errorf("unknown action %q: %w", action, shared.ErrForbidden)
	}
	if !rule(id, gc) {
		return fmt.Errorf("role %s may not perform %s: %w", id.Role, action, shared.ErrForbidden)
	}
	return nil
}

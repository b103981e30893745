package project

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibertrail/fibertrail/internal/shared"
)

func ident(userID int64, role shared.Role) shared.Identity {
	return shared.Identity{UserID: userID, Role: role}
}

func TestAuthorizeRoleTable(t *testing.T) {
	cases := []struct {
		name    string
		id      shared.Identity
		action  Action
		gc      GuardContext
		allowed bool
	}{
		{"sales creates project", ident(1, shared.RoleSales), ActionCreateProject, GuardContext{}, true},
		{"admin creates project", ident(1, shared.RoleAdmin), ActionCreateProject, GuardContext{}, true},
		{"finance cannot create project", ident(1, shared.RoleFinance), ActionCreateProject, GuardContext{}, false},

		{"survey creates boq", ident(2, shared.RoleProjectsSurvey), ActionCreateBOQ, GuardContext{}, true},
		{"sales cannot create boq", ident(2, shared.RoleSales), ActionCreateBOQ, GuardContext{}, false},

		{"sales creates pnl", ident(3, shared.RoleSales), ActionCreatePnl, GuardContext{}, true},
		{"survey cannot create pnl", ident(3, shared.RoleProjectsSurvey), ActionCreatePnl, GuardContext{}, false},

		{"admin approves pnl", ident(4, shared.RoleAdmin), ActionApprovePnl, GuardContext{}, true},
		{"sales cannot approve pnl", ident(4, shared.RoleSales), ActionApprovePnl, GuardContext{}, false},
		{"admin rejects pnl", ident(4, shared.RoleAdmin), ActionRejectPnl, GuardContext{}, true},
		{"finance cannot reject pnl", ident(4, shared.RoleFinance), ActionRejectPnl, GuardContext{}, false},

		{"submitter reviews own pnl", ident(5, shared.RoleSales), ActionReviewPnl, GuardContext{PnlSubmitterID: 5}, true},
		{"other sales cannot review pnl", ident(6, shared.RoleSales), ActionReviewPnl, GuardContext{PnlSubmitterID: 5}, false},
		{"admin reviews any pnl", ident(7, shared.RoleAdmin), ActionReviewPnl, GuardContext{PnlSubmitterID: 5}, true},

		{"survey updates boq for review", ident(8, shared.RoleProjectsSurvey), ActionUpdateBOQForReview, GuardContext{}, true},
		{"sales cannot update boq for review", ident(8, shared.RoleSales), ActionUpdateBOQForReview, GuardContext{}, false},

		{"assigned sales initiates install", ident(9, shared.RoleSales), ActionInitiateInstall, GuardContext{SalesPersonID: 9}, true},
		{"other sales cannot initiate install", ident(10, shared.RoleSales), ActionInitiateInstall, GuardContext{SalesPersonID: 9}, false},
		{"admin initiates install", ident(11, shared.RoleAdmin), ActionInitiateInstall, GuardContext{SalesPersonID: 9}, true},

		{"projects admin assigns pm", ident(12, shared.RoleProjectsAdmin), ActionAssignPM, GuardContext{}, true},
		{"install role cannot assign pm", ident(12, shared.RoleProjectsInstall), ActionAssignPM, GuardContext{}, false},

		{"projects admin updates status", ident(13, shared.RoleProjectsAdmin), ActionUpdateStatus, GuardContext{}, true},
		{"read only cannot update status", ident(13, shared.RoleReadOnly), ActionUpdateStatus, GuardContext{}, false},

		{"projects admin submits acceptance", ident(14, shared.RoleProjectsAdmin), ActionSubmitAcceptance, GuardContext{}, true},
		{"commissioning cannot submit acceptance", ident(14, shared.RoleProjectsCommissioning), ActionSubmitAcceptance, GuardContext{}, false},

		{"finance initiates billing", ident(15, shared.RoleFinance), ActionInitiateBilling, GuardContext{SalesPersonID: 99}, true},
		{"assigned salesperson initiates billing", ident(16, shared.RoleSales), ActionInitiateBilling, GuardContext{SalesPersonID: 16}, true},
		{"unrelated sales cannot initiate billing", ident(17, shared.RoleSales), ActionInitiateBilling, GuardContext{SalesPersonID: 16}, false},

		{"finance completes billing", ident(18, shared.RoleFinance), ActionCompleteBilling, GuardContext{}, true},
		{"sales cannot complete billing", ident(18, shared.RoleSales), ActionCompleteBilling, GuardContext{}, false},

		{"admin deletes project", ident(19, shared.RoleAdmin), ActionRequestDeletion, GuardContext{SalesPersonID: 1}, true},
		{"assigned sales requests deletion", ident(20, shared.RoleSales), ActionRequestDeletion, GuardContext{SalesPersonID: 20}, true},
		{"other sales cannot request deletion", ident(21, shared.RoleSales), ActionRequestDeletion, GuardContext{SalesPersonID: 20}, false},

		{"admin approves deletion", ident(22, shared.RoleAdmin), ActionApproveDeletion, GuardContext{}, true},
		{"sales cannot approve deletion", ident(22, shared.RoleSales), ActionApproveDeletion, GuardContext{}, false},
		{"admin rejects deletion", ident(22, shared.RoleAdmin), ActionRejectDeletion, GuardContext{}, true},
		{"finance cannot reject deletion", ident(22, shared.RoleFinance), ActionRejectDeletion, GuardContext{}, false},

		{"admin lists pending pnls", ident(23, shared.RoleAdmin), ActionListPendingPnls, GuardContext{}, true},
		{"sales cannot list pending pnls", ident(23, shared.RoleSales), ActionListPendingPnls, GuardContext{}, false},
		{"admin lists deletion requests", ident(23, shared.RoleAdmin), ActionListDeletions, GuardContext{}, true},
		{"read only cannot list deletion requests", ident(23, shared.RoleReadOnly), ActionListDeletions, GuardContext{}, false},

		{"projects admin views history", ident(24, shared.RoleProjectsAdmin), ActionViewHistory, GuardContext{}, true},
		{"admin views history", ident(24, shared.RoleAdmin), ActionViewHistory, GuardContext{}, true},
		{"sales cannot view history", ident(24, shared.RoleSales), ActionViewHistory, GuardContext{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.id, tc.action, tc.gc)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, shared.ErrForbidden))
			}
		})
	}
}

func TestAuthorizeUnknownAction(t *testing.T) {
	err := Authorize(ident(1, shared.RoleAdmin), Action("bogus"), GuardContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrForbidden))
}

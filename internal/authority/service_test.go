package authority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"charter/internal/account"
	"charter/internal/authority/mocks"
	"charter/internal/region"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/platform/sentinel"
	"charter/pkg/platform/tx"
	"charter/pkg/requestcontext"
)

// =============================================================================
// Authority Service Test Suite
// =============================================================================
// Justification for mocks: the single-seat handover is an ordering contract
// against the account store (demote before promote, both inside the unit).
// Mock expectations are the only way to assert the call order directly.

type AuthorityServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	accounts *mocks.MockAccountDirectory
	regions  *region.InMemoryStore
	service  *Service

	regionID id.RegionID
	now      time.Time
}

func TestAuthorityServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthorityServiceSuite))
}

func (s *AuthorityServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.accounts = mocks.NewMockAccountDirectory(s.ctrl)
	s.regionID = id.NewRegionID()
	s.regions = region.NewInMemoryStore(&region.Region{ID: s.regionID, Name: "north"})
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.service = NewService(s.accounts, s.regions, tx.NewMemoryRunner())
}

func (s *AuthorityServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AuthorityServiceSuite) ctxAs(role id.Role) context.Context {
	actor := requestcontext.ActorIdentity{AccountID: id.NewAccountID(), Role: role}
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithTime(ctx, s.now)
}

func activeAccount(accountID id.AccountID, role id.Role, regionID id.RegionID) *account.Account {
	return &account.Account{
		ID:            accountID,
		Name:          "Northern Credit Union",
		Role:          role,
		RegionID:      regionID,
		AccountStatus: account.AccountStatusActive,
		PaymentStatus: account.PaymentStatusPaid,
	}
}

// =============================================================================
// AssignRegionalAdmin Tests
// =============================================================================

func (s *AuthorityServiceSuite) TestAssignRegionalAdmin() {
	s.Run("empty seat promotes without a demotion", func() {
		targetID := id.NewAccountID()
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).
			Return(activeAccount(targetID, id.RoleMember, s.regionID), nil)
		s.accounts.EXPECT().FindRegionalAdmin(gomock.Any(), s.regionID).
			Return(nil, sentinel.ErrNotFound)
		s.accounts.EXPECT().SetRole(gomock.Any(), targetID, id.RoleRegionalAdmin, s.regionID, s.now).
			Return(nil)

		result, err := s.service.AssignRegionalAdmin(s.ctxAs(id.RoleCentralAdmin), targetID, s.regionID)
		s.NoError(err)
		s.Equal(targetID, result.PromotedID)
		s.Nil(result.DemotedID)
	})

	s.Run("occupied seat demotes the incumbent first", func() {
		targetID := id.NewAccountID()
		incumbentID := id.NewAccountID()
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).
			Return(activeAccount(targetID, id.RoleMember, s.regionID), nil)
		s.accounts.EXPECT().FindRegionalAdmin(gomock.Any(), s.regionID).
			Return(activeAccount(incumbentID, id.RoleRegionalAdmin, s.regionID), nil)
		demote := s.accounts.EXPECT().SetRole(gomock.Any(), incumbentID, id.RoleMember, s.regionID, s.now).
			Return(nil)
		s.accounts.EXPECT().SetRole(gomock.Any(), targetID, id.RoleRegionalAdmin, s.regionID, s.now).
			Return(nil).After(demote)

		result, err := s.service.AssignRegionalAdmin(s.ctxAs(id.RoleCentralAdmin), targetID, s.regionID)
		s.NoError(err)
		s.Equal(targetID, result.PromotedID)
		s.Require().NotNil(result.DemotedID)
		s.Equal(incumbentID, *result.DemotedID)
	})

	s.Run("concurrently claimed seat surfaces a conflict", func() {
		targetID := id.NewAccountID()
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).
			Return(activeAccount(targetID, id.RoleMember, s.regionID), nil)
		s.accounts.EXPECT().FindRegionalAdmin(gomock.Any(), s.regionID).
			Return(nil, sentinel.ErrNotFound)
		s.accounts.EXPECT().SetRole(gomock.Any(), targetID, id.RoleRegionalAdmin, s.regionID, s.now).
			Return(sentinel.ErrConflict)

		_, err := s.service.AssignRegionalAdmin(s.ctxAs(id.RoleCentralAdmin), targetID, s.regionID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("reassigning the incumbent is a no-op", func() {
		targetID := id.NewAccountID()
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).
			Return(activeAccount(targetID, id.RoleRegionalAdmin, s.regionID), nil)
		s.accounts.EXPECT().FindRegionalAdmin(gomock.Any(), s.regionID).
			Return(activeAccount(targetID, id.RoleRegionalAdmin, s.regionID), nil)

		result, err := s.service.AssignRegionalAdmin(s.ctxAs(id.RoleCentralAdmin), targetID, s.regionID)
		s.NoError(err)
		s.Equal(targetID, result.PromotedID)
		s.Nil(result.DemotedID)
	})

	s.Run("requires a central reviewer", func() {
		_, err := s.service.AssignRegionalAdmin(s.ctxAs(id.RoleRegionalAdmin), id.NewAccountID(), s.regionID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("rejects an unknown region", func() {
		_, err := s.service.AssignRegionalAdmin(s.ctxAs(id.RoleCentralAdmin), id.NewAccountID(), id.NewRegionID())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects an unactivated target", func() {
		targetID := id.NewAccountID()
		pending := activeAccount(targetID, id.RoleMember, s.regionID)
		pending.AccountStatus = account.AccountStatusPending
		pending.PaymentStatus = account.PaymentStatusUnpaid
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).Return(pending, nil)

		_, err := s.service.AssignRegionalAdmin(s.ctxAs(id.RoleCentralAdmin), targetID, s.regionID)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing target is not found", func() {
		targetID := id.NewAccountID()
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.AssignRegionalAdmin(s.ctxAs(id.RoleCentralAdmin), targetID, s.regionID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// RevokeAdmin Tests
// =============================================================================

func (s *AuthorityServiceSuite) TestRevokeAdmin() {
	s.Run("returns an admin to member", func() {
		targetID := id.NewAccountID()
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).
			Return(activeAccount(targetID, id.RoleRegionalAdmin, s.regionID), nil)
		s.accounts.EXPECT().SetRole(gomock.Any(), targetID, id.RoleMember, s.regionID, s.now).
			Return(nil)

		s.NoError(s.service.RevokeAdmin(s.ctxAs(id.RoleCentralAdmin), targetID))
	})

	s.Run("plain members have nothing to revoke", func() {
		targetID := id.NewAccountID()
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).
			Return(activeAccount(targetID, id.RoleMember, s.regionID), nil)

		err := s.service.RevokeAdmin(s.ctxAs(id.RoleCentralAdmin), targetID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("requires a central reviewer", func() {
		err := s.service.RevokeAdmin(s.ctxAs(id.RoleFinanceAdmin), id.NewAccountID())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// =============================================================================
// AssignCentralRole Tests
// =============================================================================

func (s *AuthorityServiceSuite) TestAssignCentralRole() {
	s.Run("grants a finance role without a region", func() {
		targetID := id.NewAccountID()
		s.accounts.EXPECT().FindByID(gomock.Any(), targetID).
			Return(activeAccount(targetID, id.RoleMember, s.regionID), nil)
		s.accounts.EXPECT().SetRole(gomock.Any(), targetID, id.RoleFinanceAdmin, id.RegionID{}, s.now).
			Return(nil)

		s.NoError(s.service.AssignCentralRole(s.ctxAs(id.RoleCentralAdmin), targetID, id.RoleFinanceAdmin))
	})

	s.Run("rejects region-scoped roles", func() {
		err := s.service.AssignCentralRole(s.ctxAs(id.RoleCentralAdmin), id.NewAccountID(), id.RoleRegionalAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requires a central reviewer", func() {
		err := s.service.AssignCentralRole(s.ctxAs(id.RoleFinanceAdmin), id.NewAccountID(), id.RoleCentralAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

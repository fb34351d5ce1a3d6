//go:build integration

package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"charter/internal/account"
	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
	"charter/pkg/testutil/containers"
)

type AccountPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *account.PostgresStore

	regionID id.RegionID
	now      time.Time
}

func TestAccountPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AccountPostgresSuite))
}

func (s *AccountPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.postgres.ApplyMigrations(s.T(), "../../migrations")
	s.store = account.NewPostgresStore(s.postgres.DB)
}

func (s *AccountPostgresSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "payments", "claims", "accounts", "regions"))

	s.regionID = id.NewRegionID()
	s.now = time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.postgres.DB.ExecContext(ctx,
		`INSERT INTO regions (id, name) VALUES ($1, $2)`, s.regionID.String(), "north")
	s.Require().NoError(err)
}

func (s *AccountPostgresSuite) seed() *account.Account {
	acct, err := account.NewAccount(id.NewAccountID(), "Northern Credit Union", "ops@ncu.example", s.regionID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), acct))
	return acct
}

func (s *AccountPostgresSuite) TestRoundTrip() {
	ctx := context.Background()
	acct := s.seed()

	got, err := s.store.FindByID(ctx, acct.ID)
	s.Require().NoError(err)
	s.Equal(acct.ID, got.ID)
	s.Equal(s.regionID, got.RegionID)
	s.Equal(id.RoleMember, got.Role)
}

func (s *AccountPostgresSuite) TestSetRoleClearsRegionForGlobalRoles() {
	ctx := context.Background()
	acct := s.seed()

	// Global roles carry no region: the row must hold NULL, not the zero
	// uuid, or the regions foreign key rejects the write.
	s.Require().NoError(s.store.SetRole(ctx, acct.ID, id.RoleFinanceAdmin, id.RegionID{}, s.now))

	got, err := s.store.FindByID(ctx, acct.ID)
	s.Require().NoError(err)
	s.Equal(id.RoleFinanceAdmin, got.Role)
	s.True(got.RegionID.IsNil())

	var stored *string
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT region_id FROM accounts WHERE id = $1`, acct.ID.String()).Scan(&stored)
	s.Require().NoError(err)
	s.Nil(stored)

	// And back to a region-scoped role.
	s.Require().NoError(s.store.SetRole(ctx, acct.ID, id.RoleRegionalAdmin, s.regionID, s.now))
	got, err = s.store.FindByID(ctx, acct.ID)
	s.Require().NoError(err)
	s.Equal(s.regionID, got.RegionID)
}

func (s *AccountPostgresSuite) TestFindRegionalAdmin() {
	ctx := context.Background()

	_, err := s.store.FindRegionalAdmin(ctx, s.regionID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	acct := s.seed()
	s.Require().NoError(s.store.SetRole(ctx, acct.ID, id.RoleRegionalAdmin, s.regionID, s.now))

	got, err := s.store.FindRegionalAdmin(ctx, s.regionID)
	s.Require().NoError(err)
	s.Equal(acct.ID, got.ID)
}

func (s *AccountPostgresSuite) TestSingleAdminSeatEnforced() {
	ctx := context.Background()
	first := s.seed()
	second := s.seed()

	s.Require().NoError(s.store.SetRole(ctx, first.ID, id.RoleRegionalAdmin, s.regionID, s.now))
	err := s.store.SetRole(ctx, second.ID, id.RoleRegionalAdmin, s.regionID, s.now)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *AccountPostgresSuite) TestActivate() {
	ctx := context.Background()
	acct := s.seed()

	s.Require().NoError(s.store.Activate(ctx, acct.ID, s.now))
	got, err := s.store.FindByID(ctx, acct.ID)
	s.Require().NoError(err)
	s.True(got.Activated())

	s.ErrorIs(s.store.Activate(ctx, id.NewAccountID(), s.now), sentinel.ErrNotFound)
}

//go:build integration

package claim_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"charter/internal/claim"
	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
	"charter/pkg/testutil/containers"
)

type ClaimPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *claim.PostgresStore

	regionID    id.RegionID
	submitterID id.AccountID
}

func TestClaimPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ClaimPostgresSuite))
}

func (s *ClaimPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.postgres.ApplyMigrations(s.T(), "../../migrations")
	s.store = claim.NewPostgresStore(s.postgres.DB)
}

func (s *ClaimPostgresSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "payments", "claims", "accounts", "regions"))

	s.regionID = id.NewRegionID()
	s.submitterID = id.NewAccountID()
	now := time.Now().UTC()

	_, err := s.postgres.DB.ExecContext(ctx,
		`INSERT INTO regions (id, name) VALUES ($1, $2)`, s.regionID.String(), "north")
	s.Require().NoError(err)
	_, err = s.postgres.DB.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, region_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		s.submitterID.String(), "Northern Credit Union", "ops@ncu.example", s.regionID.String(), now)
	s.Require().NoError(err)
}

func (s *ClaimPostgresSuite) newClaim() *claim.Claim {
	c, err := claim.NewClaim(id.NewClaimID(), s.submitterID, "Northern Credit Union", s.regionID, claim.KindNewRegistration, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), c))
	return c
}

func (s *ClaimPostgresSuite) TestRoundTrip() {
	ctx := context.Background()
	c := s.newClaim()

	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal(claim.StatusPending, got.Status)
	s.Equal(s.submitterID, got.SubmitterID)

	list, err := s.store.ListBySubmitter(ctx, s.submitterID)
	s.Require().NoError(err)
	s.Len(list, 1)

	_, err = s.store.FindByID(ctx, id.NewClaimID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ClaimPostgresSuite) TestExecutePersistsMutation() {
	ctx := context.Background()
	c := s.newClaim()
	reviewerID := s.submitterID

	updated, err := s.store.Execute(ctx, c.ID,
		func(c *claim.Claim) error {
			if c.Status != claim.StatusPending {
				return sentinel.ErrConflict
			}
			return nil
		},
		func(c *claim.Claim) {
			c.ApplyRegionalApproval(reviewerID, time.Now().UTC())
		},
	)
	s.Require().NoError(err)
	s.Equal(claim.StatusRegionalApproved, updated.Status)

	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(claim.StatusRegionalApproved, got.Status)
	s.Equal(reviewerID, got.RegionalReviewerID)
	s.NotNil(got.RegionalReviewedAt)
}

// TestConcurrentExecute verifies the row lock serializes racing transitions:
// exactly one approval lands, the rest see the advanced status.
func (s *ClaimPostgresSuite) TestConcurrentExecute() {
	ctx := context.Background()
	c := s.newClaim()
	const goroutines = 20

	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, c.ID,
				func(c *claim.Claim) error {
					if c.Status != claim.StatusPending {
						return sentinel.ErrConflict
					}
					return nil
				},
				func(c *claim.Claim) {
					c.ApplyRegionalApproval(id.NewAccountID(), time.Now().UTC())
				},
			)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one transition should win")
	s.Equal(int32(goroutines-1), conflicts.Load())
}

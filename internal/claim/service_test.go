package claim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"charter/internal/audit"
	"charter/internal/region"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/requestcontext"
)

// =============================================================================
// Claim Service Test Suite
// =============================================================================
// Justification for unit tests: the claim lifecycle carries the review state
// machine and its authorization matrix. Exercising every transition and every
// reviewer/region combination through HTTP would need full token provisioning
// for four roles; the in-memory store makes the same paths cheap to cover.

type ClaimServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	regions *region.InMemoryStore
	audits  *audit.InMemoryStore
	service *Service

	regionID      id.RegionID
	otherRegionID id.RegionID
	now           time.Time
}

func TestClaimServiceSuite(t *testing.T) {
	suite.Run(t, new(ClaimServiceSuite))
}

func (s *ClaimServiceSuite) SetupTest() {
	s.regionID = id.NewRegionID()
	s.otherRegionID = id.NewRegionID()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.store = NewInMemoryStore()
	s.regions = region.NewInMemoryStore(
		&region.Region{ID: s.regionID, Name: "north"},
		&region.Region{ID: s.otherRegionID, Name: "south"},
	)
	s.audits = audit.NewInMemoryStore()
	s.service = NewService(s.store, s.regions,
		WithAuditPublisher(audit.NewPublisher(s.audits)),
	)
}

func (s *ClaimServiceSuite) ctxFor(actor requestcontext.ActorIdentity) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *ClaimServiceSuite) member() requestcontext.ActorIdentity {
	return requestcontext.ActorIdentity{AccountID: id.NewAccountID(), Role: id.RoleMember, RegionID: s.regionID}
}

func (s *ClaimServiceSuite) regionalAdmin(regionID id.RegionID) requestcontext.ActorIdentity {
	return requestcontext.ActorIdentity{AccountID: id.NewAccountID(), Role: id.RoleRegionalAdmin, RegionID: regionID}
}

func (s *ClaimServiceSuite) centralAdmin() requestcontext.ActorIdentity {
	return requestcontext.ActorIdentity{AccountID: id.NewAccountID(), Role: id.RoleCentralAdmin}
}

func (s *ClaimServiceSuite) submit(actor requestcontext.ActorIdentity) *Claim {
	c, err := s.service.Submit(s.ctxFor(actor), "Northern Credit Union", s.regionID, KindNewRegistration)
	s.Require().NoError(err)
	return c
}

// =============================================================================
// Submit Tests
// =============================================================================

func (s *ClaimServiceSuite) TestSubmit() {
	s.Run("creates a pending claim", func() {
		actor := s.member()
		c, err := s.service.Submit(s.ctxFor(actor), "  Northern Credit Union  ", s.regionID, KindNewRegistration)
		s.NoError(err)
		s.Equal(StatusPending, c.Status)
		s.Equal("Northern Credit Union", c.InstitutionName)
		s.Equal(actor.AccountID, c.SubmitterID)
		s.Equal(s.now, c.CreatedAt)
	})

	s.Run("requires authentication", func() {
		ctx := requestcontext.WithTime(context.Background(), s.now)
		_, err := s.service.Submit(ctx, "Northern Credit Union", s.regionID, KindNewRegistration)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects blank institution name", func() {
		_, err := s.service.Submit(s.ctxFor(s.member()), "   ", s.regionID, KindNewRegistration)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unknown region", func() {
		_, err := s.service.Submit(s.ctxFor(s.member()), "Northern Credit Union", id.NewRegionID(), KindNewRegistration)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("emits an audit event", func() {
		before := len(s.audits.Events())
		s.submit(s.member())
		events := s.audits.Events()
		s.Len(events, before+1)
		s.Equal(audit.ActionClaimSubmitted, events[len(events)-1].Action)
	})
}

// =============================================================================
// Transition Tests
// =============================================================================

func (s *ClaimServiceSuite) TestApproveRegional() {
	s.Run("regional admin of the claim's region approves", func() {
		c := s.submit(s.member())
		got, err := s.service.ApproveRegional(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID)
		s.NoError(err)
		s.Equal(StatusRegionalApproved, got.Status)
		s.NotNil(got.RegionalReviewedAt)
	})

	s.Run("regional admin of another region is forbidden", func() {
		c := s.submit(s.member())
		_, err := s.service.ApproveRegional(s.ctxFor(s.regionalAdmin(s.otherRegionID)), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("member cannot approve", func() {
		c := s.submit(s.member())
		_, err := s.service.ApproveRegional(s.ctxFor(s.member()), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("second approval conflicts", func() {
		c := s.submit(s.member())
		reviewer := s.regionalAdmin(s.regionID)
		_, err := s.service.ApproveRegional(s.ctxFor(reviewer), c.ID)
		s.Require().NoError(err)
		_, err = s.service.ApproveRegional(s.ctxFor(reviewer), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown claim is not found", func() {
		_, err := s.service.ApproveRegional(s.ctxFor(s.regionalAdmin(s.regionID)), id.NewClaimID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ClaimServiceSuite) TestApproveCentral() {
	s.Run("central admin approves a regionally approved claim", func() {
		c := s.submit(s.member())
		_, err := s.service.ApproveRegional(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID)
		s.Require().NoError(err)

		got, err := s.service.ApproveCentral(s.ctxFor(s.centralAdmin()), c.ID)
		s.NoError(err)
		s.Equal(StatusCentrallyApproved, got.Status)
	})

	s.Run("pending claim cannot skip regional review", func() {
		c := s.submit(s.member())
		_, err := s.service.ApproveCentral(s.ctxFor(s.centralAdmin()), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("regional admin cannot approve centrally", func() {
		c := s.submit(s.member())
		_, err := s.service.ApproveRegional(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID)
		s.Require().NoError(err)
		_, err = s.service.ApproveCentral(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ClaimServiceSuite) TestReject() {
	s.Run("requires a reason", func() {
		c := s.submit(s.member())
		_, err := s.service.Reject(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID, "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("regional admin rejects a pending claim", func() {
		c := s.submit(s.member())
		got, err := s.service.Reject(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID, "incomplete charter documents")
		s.NoError(err)
		s.Equal(StatusRejected, got.Status)
		s.Equal("incomplete charter documents", got.RejectionReason)
		s.True(got.Status.Terminal())
	})

	s.Run("central admin rejects a regionally approved claim", func() {
		c := s.submit(s.member())
		_, err := s.service.ApproveRegional(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID)
		s.Require().NoError(err)

		got, err := s.service.Reject(s.ctxFor(s.centralAdmin()), c.ID, "charter revoked upstream")
		s.NoError(err)
		s.Equal(StatusRejected, got.Status)
	})

	s.Run("regional admin cannot reject after regional approval", func() {
		c := s.submit(s.member())
		reviewer := s.regionalAdmin(s.regionID)
		_, err := s.service.ApproveRegional(s.ctxFor(reviewer), c.ID)
		s.Require().NoError(err)
		_, err = s.service.Reject(s.ctxFor(reviewer), c.ID, "changed my mind")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejected claim stays rejected", func() {
		c := s.submit(s.member())
		_, err := s.service.Reject(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID, "incomplete")
		s.Require().NoError(err)
		_, err = s.service.ApproveRegional(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// =============================================================================
// Visibility Tests
// =============================================================================

func (s *ClaimServiceSuite) TestGet() {
	s.Run("submitter sees their own claim", func() {
		actor := s.member()
		c := s.submit(actor)
		got, err := s.service.Get(s.ctxFor(actor), c.ID)
		s.NoError(err)
		s.Equal(c.ID, got.ID)
	})

	s.Run("regional admin sees claims in their region only", func() {
		c := s.submit(s.member())
		_, err := s.service.Get(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID)
		s.NoError(err)
		_, err = s.service.Get(s.ctxFor(s.regionalAdmin(s.otherRegionID)), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("central admin sees everything", func() {
		c := s.submit(s.member())
		_, err := s.service.Get(s.ctxFor(s.centralAdmin()), c.ID)
		s.NoError(err)
	})

	s.Run("other members see nothing", func() {
		c := s.submit(s.member())
		_, err := s.service.Get(s.ctxFor(s.member()), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ClaimServiceSuite) TestListMine() {
	actor := s.member()
	s.submit(actor)
	s.submit(actor)
	s.submit(s.member())

	claims, err := s.service.ListMine(s.ctxFor(actor))
	s.NoError(err)
	s.Len(claims, 2)
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func (s *ClaimServiceSuite) TestConcurrentRegionalApproval() {
	// Two reviewers race on the same pending claim. The compare-and-set in
	// the store must let exactly one through; the loser gets a conflict.
	c := s.submit(s.member())

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.ApproveRegional(s.ctxFor(s.regionalAdmin(s.regionID)), c.ID)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			conflicts++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, wins)
	s.Equal(racers-1, conflicts)

	got, err := s.store.FindByID(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Equal(StatusRegionalApproved, got.Status)
}

package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
	txcontext "charter/pkg/platform/tx"
)

// PostgresStore persists claims in PostgreSQL. Execute implements the
// compare-and-set with SELECT ... FOR UPDATE inside a transaction, joining
// the context transaction when the caller already opened one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbHandle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) handle(ctx context.Context) dbHandle {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const claimColumns = `id, submitter_id, institution_name, region_id, kind, status,
	rejection_reason, regional_reviewer_id, regional_reviewed_at,
	central_reviewer_id, central_reviewed_at, rejected_by, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *Claim) error {
	_, err := s.handle(ctx).ExecContext(ctx,
		`INSERT INTO claims (`+claimColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		claimArgs(c)...,
	)
	if err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, claimID id.ClaimID) (*Claim, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, claimID.String())
	return scanClaim(row)
}

func (s *PostgresStore) ListBySubmitter(ctx context.Context, submitterID id.AccountID) ([]*Claim, error) {
	rows, err := s.handle(ctx).QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE submitter_id = $1 ORDER BY created_at`,
		submitterID.String())
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Execute locks the row, validates, mutates, and writes back. When the
// context carries a transaction the row stays locked until that transaction
// ends, which is what keeps multi-entity cascades atomic.
func (s *PostgresStore) Execute(ctx context.Context, claimID id.ClaimID, validate func(*Claim) error, mutate func(*Claim)) (*Claim, error) {
	if _, ok := txcontext.From(ctx); ok {
		return s.executeLocked(ctx, claimID, validate, mutate)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	c, err := s.executeLocked(txcontext.WithTx(ctx, sqlTx), claimID, validate, mutate)
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) executeLocked(ctx context.Context, claimID id.ClaimID, validate func(*Claim) error, mutate func(*Claim)) (*Claim, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1 FOR UPDATE`, claimID.String())
	c, err := scanClaim(row)
	if err != nil {
		return nil, err
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)

	_, err = s.handle(ctx).ExecContext(ctx,
		`UPDATE claims SET status = $2, rejection_reason = $3,
			regional_reviewer_id = $4, regional_reviewed_at = $5,
			central_reviewer_id = $6, central_reviewed_at = $7,
			rejected_by = $8, updated_at = $9
		 WHERE id = $1`,
		c.ID.String(), string(c.Status), nullString(c.RejectionReason),
		nullID(c.RegionalReviewerID), c.RegionalReviewedAt,
		nullID(c.CentralReviewerID), c.CentralReviewedAt,
		nullID(c.RejectedBy), c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update claim: %w", err)
	}
	return c, nil
}

func claimArgs(c *Claim) []any {
	return []any{
		c.ID.String(), c.SubmitterID.String(), c.InstitutionName, c.RegionID.String(),
		string(c.Kind), string(c.Status), nullString(c.RejectionReason),
		nullID(c.RegionalReviewerID), c.RegionalReviewedAt,
		nullID(c.CentralReviewerID), c.CentralReviewedAt,
		nullID(c.RejectedBy), c.CreatedAt, c.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*Claim, error) {
	var (
		c                              Claim
		rawID, rawSubmitter, rawRegion string
		kind, status                   string
		reason                         sql.NullString
		regReviewer, cenReviewer       sql.NullString
		rejectedBy                     sql.NullString
	)
	err := row.Scan(&rawID, &rawSubmitter, &c.InstitutionName, &rawRegion,
		&kind, &status, &reason, &regReviewer, &c.RegionalReviewedAt,
		&cenReviewer, &c.CentralReviewedAt, &rejectedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}

	claimID, err := id.ParseClaimID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse claim id: %w", err)
	}
	submitterID, err := id.ParseAccountID(rawSubmitter)
	if err != nil {
		return nil, fmt.Errorf("parse submitter id: %w", err)
	}
	regionID, err := id.ParseRegionID(rawRegion)
	if err != nil {
		return nil, fmt.Errorf("parse region id: %w", err)
	}
	c.ID = claimID
	c.SubmitterID = submitterID
	c.RegionID = regionID
	c.Kind = Kind(kind)
	c.Status = Status(status)
	c.RejectionReason = reason.String
	if c.RegionalReviewerID, err = parseNullAccount(regReviewer); err != nil {
		return nil, err
	}
	if c.CentralReviewerID, err = parseNullAccount(cenReviewer); err != nil {
		return nil, err
	}
	if c.RejectedBy, err = parseNullAccount(rejectedBy); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseNullAccount(v sql.NullString) (id.AccountID, error) {
	if !v.Valid {
		return id.AccountID{}, nil
	}
	acct, err := id.ParseAccountID(v.String)
	if err != nil {
		return id.AccountID{}, fmt.Errorf("parse account id: %w", err)
	}
	return acct, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullID(accountID id.AccountID) sql.NullString {
	return sql.NullString{String: accountID.String(), Valid: !accountID.IsNil()}
}

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
	txcontext "charter/pkg/platform/tx"
)

// Constraint names from migrations; Create maps their violations to the
// sentinels the issuer branches on.
const (
	constraintOnePerClaim    = "payments_claim_id_key"
	constraintUnresolvedCode = "payments_unresolved_amount_code_idx"
)

// PostgresStore persists payment records in PostgreSQL. The unresolved
// (base, code) invariant is guarded by a partial unique index so it holds
// even across processes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbHandle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) handle(ctx context.Context) dbHandle {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const paymentColumns = `id, claim_id, submitter_id, base_amount, unique_code, total_amount,
	proof_key, status, rejection_reason, verifier_id, verified_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *PaymentRecord) error {
	_, err := s.handle(ctx).ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID.String(), p.ClaimID.String(), p.SubmitterID.String(),
		p.BaseAmount, p.UniqueCode, p.TotalAmount,
		nullString(p.ProofKey), string(p.Status), nullString(p.RejectionReason),
		nullID(p.VerifierID), p.VerifiedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case constraintOnePerClaim:
				return sentinel.ErrConflict
			case constraintUnresolvedCode:
				return sentinel.ErrAlreadyUsed
			}
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, paymentID id.PaymentID) (*PaymentRecord, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID.String())
	return scanPayment(row)
}

func (s *PostgresStore) FindByClaim(ctx context.Context, claimID id.ClaimID) (*PaymentRecord, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE claim_id = $1`, claimID.String())
	return scanPayment(row)
}

func (s *PostgresStore) Execute(ctx context.Context, paymentID id.PaymentID, validate func(*PaymentRecord) error, mutate func(*PaymentRecord)) (*PaymentRecord, error) {
	if _, ok := txcontext.From(ctx); ok {
		return s.executeLocked(ctx, paymentID, validate, mutate)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment tx: %w", err)
	}
	p, err := s.executeLocked(txcontext.WithTx(ctx, sqlTx), paymentID, validate, mutate)
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment tx: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) executeLocked(ctx context.Context, paymentID id.PaymentID, validate func(*PaymentRecord) error, mutate func(*PaymentRecord)) (*PaymentRecord, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, paymentID.String())
	p, err := scanPayment(row)
	if err != nil {
		return nil, err
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	_, err = s.handle(ctx).ExecContext(ctx,
		`UPDATE payments SET proof_key = $2, status = $3, rejection_reason = $4,
			verifier_id = $5, verified_at = $6, updated_at = $7
		 WHERE id = $1`,
		p.ID.String(), nullString(p.ProofKey), string(p.Status),
		nullString(p.RejectionReason), nullID(p.VerifierID), p.VerifiedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*PaymentRecord, error) {
	var (
		p                          PaymentRecord
		rawID, rawClaim, rawSubmit string
		proofKey, reason, verifier sql.NullString
		status                     string
	)
	err := row.Scan(&rawID, &rawClaim, &rawSubmit, &p.BaseAmount, &p.UniqueCode,
		&p.TotalAmount, &proofKey, &status, &reason, &verifier, &p.VerifiedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	paymentID, err := id.ParsePaymentID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse payment id: %w", err)
	}
	claimID, err := id.ParseClaimID(rawClaim)
	if err != nil {
		return nil, fmt.Errorf("parse claim id: %w", err)
	}
	submitterID, err := id.ParseAccountID(rawSubmit)
	if err != nil {
		return nil, fmt.Errorf("parse submitter id: %w", err)
	}
	p.ID = paymentID
	p.ClaimID = claimID
	p.SubmitterID = submitterID
	p.ProofKey = proofKey.String
	p.Status = Status(status)
	p.RejectionReason = reason.String
	if verifier.Valid {
		verifierID, err := id.ParseAccountID(verifier.String)
		if err != nil {
			return nil, fmt.Errorf("parse verifier id: %w", err)
		}
		p.VerifierID = verifierID
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullID(accountID id.AccountID) sql.NullString {
	return sql.NullString{String: accountID.String(), Valid: !accountID.IsNil()}
}

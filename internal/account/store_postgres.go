package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
	txcontext "charter/pkg/platform/tx"
)

// PostgresStore persists accounts in PostgreSQL. All writes go through the
// context transaction when one is open.
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

const accountColumns = `id, name, email, role, region_id, account_status, payment_status, profile_level, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, acct *Account) error {
	_, err := s.handle(ctx).ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		acct.ID.String(), acct.Name, acct.Email, acct.Role.String(),
		nullRegion(acct.RegionID), string(acct.AccountStatus), string(acct.PaymentStatus),
		string(acct.ProfileLevel), acct.CreatedAt, acct.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (*Account, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID.String())
	return scanAccount(row)
}

func (s *PostgresStore) FindRegionalAdmin(ctx context.Context, regionID id.RegionID) (*Account, error) {
	// FOR UPDATE so a concurrent reassignment of the same seat serializes on
	// the current holder's row.
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE role = $1 AND region_id = $2
		 FOR UPDATE`, id.RoleRegionalAdmin.String(), regionID.String())
	return scanAccount(row)
}

// constraintOneAdminPerRegion is the partial unique index capping each region
// at one regional_admin.
const constraintOneAdminPerRegion = "accounts_regional_admin_idx"

func (s *PostgresStore) SetRole(ctx context.Context, accountID id.AccountID, role id.Role, regionID id.RegionID, now time.Time) error {
	res, err := s.handle(ctx).ExecContext(ctx,
		`UPDATE accounts SET role = $2, region_id = $3, updated_at = $4 WHERE id = $1`,
		accountID.String(), role.String(), nullRegion(regionID), now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" &&
			pgErr.ConstraintName == constraintOneAdminPerRegion {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("set role: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Activate(ctx context.Context, accountID id.AccountID, now time.Time) error {
	res, err := s.handle(ctx).ExecContext(ctx,
		`UPDATE accounts
		 SET account_status = $2, payment_status = $3, updated_at = $4
		 WHERE id = $1`,
		accountID.String(), string(AccountStatusActive), string(PaymentStatusPaid), now,
	)
	if err != nil {
		return fmt.Errorf("activate account: %w", err)
	}
	return requireRow(res)
}

// nullRegion binds a nil region id as SQL NULL. Centrally scoped accounts
// carry no region, and the zero UUID would trip the regions foreign key.
func nullRegion(regionID id.RegionID) sql.NullString {
	if regionID.IsNil() {
		return sql.NullString{}
	}
	return sql.NullString{String: regionID.String(), Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*Account, error) {
	var (
		acct                   Account
		rawID, rawRole         string
		rawReg                 sql.NullString
		status, payment, level string
	)
	err := row.Scan(&rawID, &acct.Name, &acct.Email, &rawRole, &rawReg,
		&status, &payment, &level, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	accountID, err := id.ParseAccountID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}
	var regionID id.RegionID
	if rawReg.Valid {
		regionID, err = id.ParseRegionID(rawReg.String)
		if err != nil {
			return nil, fmt.Errorf("parse region id: %w", err)
		}
	}
	role, ok := id.ParseRole(rawRole)
	if !ok {
		return nil, fmt.Errorf("unknown role %q in store", rawRole)
	}
	acct.ID = accountID
	acct.RegionID = regionID
	acct.Role = role
	acct.AccountStatus = AccountStatus(status)
	acct.PaymentStatus = PaymentStatus(payment)
	acct.ProfileLevel = ProfileLevel(level)
	return &acct, nil
}

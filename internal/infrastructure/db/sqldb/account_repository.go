package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

const accountColumns = `id, clinic_name, username, password_hash, role, created_at`

// AccountRepository implements ports.AccountRepository.
type AccountRepository struct {
	db  *DB
	now func() time.Time
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db, now: time.Now}
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`,
		domain.NormalizeUsername(username))
	return scanAccount(row)
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list accounts", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	a.Username = domain.NormalizeUsername(a.Username)
	a.CreatedAt = r.now().UTC().Truncate(time.Second)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (clinic_name, username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ClinicName, a.Username, a.PasswordHash, string(a.Role), a.CreatedAt.Unix(),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrAccountExists
		}
		return storeErr("insert account", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert account: last insert id", err)
	}
	a.ID = id
	return nil
}

// Update rewrites the account inside a transaction that locks the admin rows,
// so two concurrent demotions cannot leave zero admins.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	a.Username = domain.NormalizeUsername(a.Username)

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.lockedRole(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if current == domain.RoleAdmin && a.Role != domain.RoleAdmin {
			if err := r.ensureOtherAdmin(ctx, tx); err != nil {
				return err
			}
		}

		query := `UPDATE accounts SET clinic_name = ?, username = ?, role = ? WHERE id = ?`
		args := []any{a.ClinicName, a.Username, string(a.Role), a.ID}
		if a.PasswordHash != "" {
			query = `UPDATE accounts SET clinic_name = ?, username = ?, role = ?, password_hash = ? WHERE id = ?`
			args = []any{a.ClinicName, a.Username, string(a.Role), a.PasswordHash, a.ID}
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isDuplicateKey(err) {
				return domain.ErrAccountExists
			}
			return storeErr("update account", err)
		}
		return nil
	})
}

// Delete removes the account unless it is the last admin.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		role, err := r.lockedRole(ctx, tx, id)
		if err != nil {
			return err
		}
		if role == domain.RoleAdmin {
			if err := r.ensureOtherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
			return storeErr("delete account", err)
		}
		return nil
	})
}

// CountAdmins reports how many admin accounts exist.
func (r *AccountRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE role = ?`, string(domain.RoleAdmin)).Scan(&n)
	if err != nil {
		return 0, storeErr("count admins", err)
	}
	return n, nil
}

func (r *AccountRepository) lockedRole(ctx context.Context, tx *sql.Tx, id int64) (domain.Role, error) {
	var role string
	err := tx.QueryRowContext(ctx, `SELECT role FROM accounts WHERE id = ?`+r.db.lockClause(), id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrAccountNotFound
	}
	if err != nil {
		return "", storeErr("load account role", err)
	}
	return domain.Role(role), nil
}

func (r *AccountRepository) ensureOtherAdmin(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM accounts WHERE role = ?`+r.db.lockClause(), string(domain.RoleAdmin))
	if err != nil {
		return storeErr("count admins", err)
	}
	defer rows.Close()

	admins := 0
	for rows.Next() {
		admins++
	}
	if err := rows.Err(); err != nil {
		return storeErr("count admins", err)
	}
	if admins <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}

func scanAccount(row scanner) (*domain.Account, error) {
	var (
		a         domain.Account
		role      string
		createdAt int64
	)
	if err := row.Scan(&a.ID, &a.ClinicName, &a.Username, &a.PasswordHash, &role, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, storeErr("scan account", err)
	}
	a.Role = domain.Role(role)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}

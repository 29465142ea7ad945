package postgres

import (
	"context"
	"database/sql"

	"github.com/domicoco/edge-bank/internal/interfaces"
	"github.com/domicoco/edge-bank/internal/ledger"
	"github.com/domicoco/edge-bank/internal/models"
)

// Schema expected by this package:
//
//	CREATE TABLE accounts (
//	    email           TEXT PRIMARY KEY,
//	    name            TEXT NOT NULL,
//	    date_of_birth   TEXT NOT NULL DEFAULT '',
//	    gender          TEXT NOT NULL DEFAULT '',
//	    address         TEXT NOT NULL DEFAULT '',
//	    national_id     TEXT NOT NULL DEFAULT '',
//	    phone           TEXT NOT NULL DEFAULT '',
//	    account_type    TEXT NOT NULL DEFAULT '',
//	    pin_hash        TEXT NOT NULL,
//	    security_answer TEXT NOT NULL DEFAULT '',
//	    created_at      TIMESTAMPTZ NOT NULL
//	);

type Directory struct {
	db *sql.DB
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) Exists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT 1 FROM accounts WHERE email = $1 LIMIT 1`

	var one int
	err := d.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Directory) Get(ctx context.Context, email string) (models.Account, error) {
	const query = `SELECT email, name, date_of_birth, gender, address, national_id, phone,
	account_type, pin_hash, security_answer, created_at
	FROM accounts WHERE email = $1`

	var a models.Account
	err := d.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)).Scan(
		&a.Email,
		&a.Name,
		&a.DateOfBirth,
		&a.Gender,
		&a.Address,
		&a.NationalID,
		&a.Phone,
		&a.AccountType,
		&a.PINHash,
		&a.SecurityAnswer,
		&a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Account{}, ledger.ErrNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	return a, nil
}

func (d *Directory) Create(ctx context.Context, account models.Account) error {
	const query = `INSERT INTO accounts (email, name, date_of_birth, gender, address, national_id,
	phone, account_type, pin_hash, security_answer, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := d.db.ExecContext(ctx, query,
		models.NormalizeEmail(account.Email),
		account.Name,
		account.DateOfBirth,
		account.Gender,
		account.Address,
		account.NationalID,
		account.Phone,
		account.AccountType,
		account.PINHash,
		account.SecurityAnswer,
		account.CreatedAt,
	)
	return err
}

func (d *Directory) GetCredential(ctx context.Context, email string) (string, error) {
	const query = `SELECT pin_hash FROM accounts WHERE email = $1`

	var hash string
	err := d.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", ledger.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (d *Directory) SetCredential(ctx context.Context, email, pinHash string) error {
	const query = `UPDATE accounts SET pin_hash = $2 WHERE email = $1`

	res, err := d.db.ExecContext(ctx, query, models.NormalizeEmail(email), pinHash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (d *Directory) GetSecurityAnswer(ctx context.Context, email string) (string, error) {
	const query = `SELECT security_answer FROM accounts WHERE email = $1`

	var answer string
	err := d.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)).Scan(&answer)
	if err == sql.ErrNoRows {
		return "", ledger.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return answer, nil
}

var _ interfaces.AccountDirectory = (*Directory)(nil)

package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/risiti/core/receipt"
)

type receiptRow struct {
	ID           string    `db:"id"`
	AccountID    string    `db:"account_id"`
	StudentName  string    `db:"student_name"`
	Email        string    `db:"email"`
	EnrollmentID string    `db:"enrollment_id"`
	PayOrderNo   string    `db:"pay_order_no"`
	Status       string    `db:"status"`
	Error        string    `db:"error"`
	Handle       string    `db:"handle"`
	Sent         bool      `db:"sent"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r receiptRow) receipt() receipt.Receipt {
	return receipt.Receipt{
		ID:           r.ID,
		AccountID:    r.AccountID,
		StudentName:  r.StudentName,
		Email:        r.Email,
		EnrollmentID: r.EnrollmentID,
		PayOrderNo:   r.PayOrderNo,
		Status:       receipt.Status(r.Status),
		Error:        r.Error,
		Handle:       r.Handle,
		Sent:         r.Sent,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newReceiptRow(rcpt receipt.Receipt) receiptRow {
	return receiptRow{
		ID:           rcpt.ID,
		AccountID:    rcpt.AccountID,
		StudentName:  rcpt.StudentName,
		Email:        rcpt.Email,
		EnrollmentID: rcpt.EnrollmentID,
		PayOrderNo:   rcpt.PayOrderNo,
		Status:       string(rcpt.Status),
		Error:        rcpt.Error,
		Handle:       rcpt.Handle,
		Sent:         rcpt.Sent,
		CreatedAt:    rcpt.CreatedAt,
		UpdatedAt:    rcpt.UpdatedAt,
	}
}

type receiptRepository struct {
	db *sqlx.DB
}

var _ receipt.Repository = (*receiptRepository)(nil)

func NewReceiptRepository(db *sql.DB) *receiptRepository {
	return &receiptRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *receiptRepository) CreateReceipt(rcpt receipt.Receipt) (receipt.Receipt, error) {
	const q = `
		INSERT INTO receipt (id, account_id, student_name, email, enrollment_id, pay_order_no,
		                     status, error, handle, sent, created_at, updated_at)
		VALUES (:id, :account_id, :student_name, :email, :enrollment_id, :pay_order_no,
		        :status, :error, :handle, :sent, :created_at, :updated_at)`
	if _, err := repo.db.NamedExec(q, newReceiptRow(rcpt)); err != nil {
		return receipt.Receipt{}, errors.Wrap(err, "inserting receipt")
	}
	return rcpt, nil
}

func (repo *receiptRepository) UpdateReceipt(rcpt receipt.Receipt) (receipt.Receipt, error) {
	const q = `
		UPDATE receipt
		SET account_id = :account_id, status = :status, error = :error, handle = :handle,
		    sent = :sent, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExec(q, newReceiptRow(rcpt))
	if err != nil {
		return receipt.Receipt{}, errors.Wrap(err, "updating receipt")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return receipt.Receipt{}, receipt.ErrNotFound
	}
	return rcpt, nil
}

func (repo *receiptRepository) selectWhere(clause string, args ...interface{}) ([]receipt.Receipt, error) {
	var rows []receiptRow
	if err := repo.db.Select(&rows, `SELECT * FROM receipt `+clause, args...); err != nil {
		return nil, errors.Wrap(err, "querying receipts")
	}
	rcpts := make([]receipt.Receipt, len(rows))
	for i, r := range rows {
		rcpts[i] = r.receipt()
	}
	return rcpts, nil
}

func (repo *receiptRepository) QueryAllReceipts() ([]receipt.Receipt, error) {
	return repo.selectWhere("ORDER BY created_at")
}

func (repo *receiptRepository) GetReceiptByID(id string) (receipt.Receipt, error) {
	var row receiptRow
	if err := repo.db.Get(&row, `SELECT * FROM receipt WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return receipt.Receipt{}, receipt.ErrNotFound
		}
		return receipt.Receipt{}, errors.Wrap(err, "getting receipt")
	}
	return row.receipt(), nil
}

func (repo *receiptRepository) FilterReceiptsByEmail(email string) ([]receipt.Receipt, error) {
	return repo.selectWhere("WHERE LOWER(email) = LOWER($1) ORDER BY created_at", email)
}

func (repo *receiptRepository) DeleteReceiptsByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM receipt WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting receipts")
	}
	return nil
}

package inmemdb

import (
	"strings"

	"github.com/trezcool/risiti/core/receipt"
)

type receiptRepository struct {
	db *receiptTable
}

var _ receipt.Repository = (*receiptRepository)(nil)

func NewReceiptRepository(db *DB) *receiptRepository {
	return &receiptRepository{db: db.receipt}
}

func (repo *receiptRepository) query() []receipt.Receipt {
	rcpts := make([]receipt.Receipt, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		if rcpt, ok := repo.db.table[id]; ok {
			rcpts = append(rcpts, *rcpt)
		}
	}
	return rcpts
}

func (repo *receiptRepository) CreateReceipt(rcpt receipt.Receipt) (receipt.Receipt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[rcpt.ID] = &rcpt
	repo.db.order = append(repo.db.order, rcpt.ID)
	return rcpt, nil
}

func (repo *receiptRepository) UpdateReceipt(rcpt receipt.Receipt) (receipt.Receipt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[rcpt.ID]; !ok {
		return receipt.Receipt{}, receipt.ErrNotFound
	}
	repo.db.table[rcpt.ID] = &rcpt
	return rcpt, nil
}

func (repo *receiptRepository) QueryAllReceipts() ([]receipt.Receipt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *receiptRepository) GetReceiptByID(id string) (receipt.Receipt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rcpt, ok := repo.db.table[id]; ok {
		return *rcpt, nil
	}
	return receipt.Receipt{}, receipt.ErrNotFound
}

func (repo *receiptRepository) FilterReceiptsByEmail(email string) ([]receipt.Receipt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var rcpts []receipt.Receipt
	for _, rcpt := range repo.query() {
		if strings.EqualFold(rcpt.Email, email) {
			rcpts = append(rcpts, rcpt)
		}
	}
	return rcpts, nil
}

func (repo *receiptRepository) DeleteReceiptsByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

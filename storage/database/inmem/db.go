// Package inmemdb implements the repositories on plain maps; for tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/risiti/core/receipt"
	"github.com/trezcool/risiti/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	receiptTable struct {
		mutex sync.RWMutex
		table map[string]*receipt.Receipt
		order []string // insertion order
	}

	DB struct {
		user    *userTable
		receipt *receiptTable
	}
)

func NewDB() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		receipt: &receiptTable{table: make(map[string]*receipt.Receipt)},
	}
}

package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/risiti/core"
	"github.com/trezcool/risiti/core/receipt"
	"github.com/trezcool/risiti/core/user"
)

// NewConfig returns a Config suitable for tests; nothing external is hit.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:     true,
		TestMode:  true,
		Env:       "TEST",
		AppName:   "Risiti",
		SecretKey: "test-secret-key",
		WorkDir:   core.Getwd(),
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: time.Hour,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateReceipt(
	t *testing.T,
	repo receipt.Repository,
	name, email, handle string,
	status receipt.Status,
) receipt.Receipt {
	t.Helper()

	now := time.Now().UTC()
	rcpt := receipt.Receipt{
		ID:          uuid.New().String(),
		StudentName: name,
		Email:       email,
		Handle:      handle,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rcpt, err := repo.CreateReceipt(rcpt)
	if err != nil {
		t.Fatalf("CreateReceipt() failed: %v", err)
	}
	return rcpt
}

// Logger discards everything; satisfies core.Logger.
type Logger struct{}

var _ core.Logger = (*Logger)(nil)

func (Logger) Enable(bool)                  {}
func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(string, ...interface{}) {}

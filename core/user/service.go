package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/risiti/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(username, email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		QueryAllUsers() ([]User, error)
		GetUserByID(id string) (User, error)
		GetUserByUsername(username string) (User, error)
		GetUserByEmail(email string) (User, error)
		GetUserByUsernameOrEmail(username string) (User, error)
		UpdateUser(user User, isActive *bool) (User, error)
		DeleteUsersByID(ids ...string) error
	}

	// ServiceInterface is consumed by payload validation; *Service satisfies it.
	ServiceInterface interface {
		CheckUniqueness(uname, email string, exclUsers ...User) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:           uuid.New().String(),
		Name:         nu.Name,
		Username:     nu.Username,
		Email:        nu.Email,
		EnrollmentID: nu.EnrollmentID,
		IsActive:     true,
		Roles:        nu.Roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(usr)
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
}

func (svc *Service) Update(id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:           id,
		Name:         uu.Name,
		Username:     uu.Username,
		Email:        uu.Email,
		EnrollmentID: uu.EnrollmentID,
		Roles:        uu.Roles,
		UpdatedAt:    time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(usr, uu.IsActive)
}

func (svc *Service) SetLastLogin(usr User) error {
	usr.LastLogin = time.Now().UTC()
	_, err := svc.repo.UpdateUser(usr, nil)
	return err
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteUsersByID(ids...)
}

// EnsureAccount returns the ID of the active account owning email,
// creating a student account with initialSecret as password when none exists.
func (svc *Service) EnsureAccount(email, initialSecret string) (string, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return "", errors.New("email is required")
	}

	usr, err := svc.repo.GetUserByEmail(email)
	if err == nil {
		return usr.ID, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return "", errors.Wrapf(err, "looking up account %s", email)
	}

	now := time.Now().UTC()
	usr = User{
		ID:        uuid.New().String(),
		Username:  usernameFromEmail(email),
		Email:     email,
		IsActive:  true,
		Roles:     StudentRoles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(initialSecret); err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	usr, err = svc.repo.CreateUser(usr)
	if err != nil {
		return "", errors.Wrapf(err, "creating account %s", email)
	}
	return usr.ID, nil
}

// UpsertProfile copies known profile fields onto the account. Empty values
// never overwrite existing ones.
func (svc *Service) UpsertProfile(accountID string, fields map[string]string) error {
	usr, err := svc.repo.GetUserByID(accountID)
	if err != nil {
		return errors.Wrapf(err, "loading account %s", accountID)
	}
	var dirty bool
	if name := core.CleanString(fields["name"]); name != "" && name != usr.Name {
		usr.Name = name
		dirty = true
	}
	if eid := core.CleanString(fields["enrollment_id"]); eid != "" && eid != usr.EnrollmentID {
		usr.EnrollmentID = eid
		dirty = true
	}
	if !dirty {
		return nil
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(usr, nil)
	return err
}

func usernameFromEmail(email string) string {
	uname := email
	if at := strings.Index(email, "@"); at > 0 {
		uname = email[:at]
	}
	return core.CleanString(uname, true /* lower */)
}

package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/risiti/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	EnrollmentID string         `db:"enrollment_id"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    time.Time      `db:"last_login"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		EnrollmentID: r.EnrollmentID,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin,
	}
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		EnrollmentID: usr.EnrollmentID,
		IsActive:     usr.IsActive,
		Roles:        usr.Roles,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    usr.LastLogin,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	check := func(column, value string, target error) error {
		if value == "" {
			return nil
		}
		query, args, err := sqlx.In(
			`SELECT EXISTS (SELECT 1 FROM "user" WHERE `+column+` = ? AND id NOT IN (?))`,
			value, append(exclIDs, ""), // never match the empty ID
		)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		var exists bool
		if err = repo.db.Get(&exists, repo.db.Rebind(query), args...); err != nil {
			return errors.Wrap(err, "checking uniqueness")
		}
		if exists {
			return target
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	const q = `
		INSERT INTO "user" (id, name, username, email, enrollment_id, is_active, roles, password_hash, created_at, updated_at)
		VALUES (:id, :name, :username, :email, :enrollment_id, :is_active, :roles, :password_hash, :created_at, :updated_at)`
	if _, err := repo.db.NamedExec(q, newUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []userRow
	if err := repo.db.Select(&rows, `SELECT * FROM "user" ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, len(rows))
	for i, r := range rows {
		users[i] = r.user()
	}
	return users, nil
}

func (repo *userRepository) getWhere(clause string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT * FROM "user" WHERE `+clause, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	return repo.getWhere("id = $1", id)
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getWhere("username = $1", username)
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getWhere("email = $1", email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getWhere("username = $1 OR email = $1", username)
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	orig, err := repo.GetUserByID(usr.ID)
	if err != nil {
		return user.User{}, err
	}

	// only save set fields
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.EnrollmentID != "" {
		orig.EnrollmentID = usr.EnrollmentID
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	if !usr.LastLogin.IsZero() {
		orig.LastLogin = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		orig.UpdatedAt = usr.UpdatedAt
	}

	const q = `
		UPDATE "user"
		SET name = :name, username = :username, email = :email, enrollment_id = :enrollment_id,
		    is_active = :is_active, roles = :roles, password_hash = :password_hash,
		    updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	if _, err = repo.db.NamedExec(q, newUserRow(orig)); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return orig, nil
}

func (repo *userRepository) DeleteUsersByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

package main

import (
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/risiti/core"
	"github.com/trezcool/risiti/core/user"
)

// createAdmin updates or creates an admin account.
func (cli *commandLine) createAdmin(uname, email, pwd string) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			ID:        uuid.New().String(),
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	usr.Roles = user.AllRoles
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.CreatedAt.Equal(now) {
		usr.IsActive = true
		_, err = cli.usrRepo.CreateUser(usr)
		return err
	}
	isActive := true
	_, err = cli.usrRepo.UpdateUser(usr, &isActive)
	return err
}

package main

import (
	"context"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// addUser creates an admin user.User, or promotes an existing one to admin.
func (cli *commandLine) addUser(name, uname, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:      name,
			Username:  uname,
			Email:     email,
			Role:      user.RoleAdmin,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		usr.SetActive(true)
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Role = user.RoleAdmin
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.SetActive(true)
	_, err = cli.usrRepo.UpdateUser(ctx, usr, usr.IsActive)
	return err
}

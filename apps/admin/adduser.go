package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, pwd string, role user.Role, code string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	code = core.CleanString(code)

	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", role)
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return err
	}

	roleChanged := exists && usr.Role != role
	usr.Name = name
	usr.Email = email
	usr.Role = role
	usr.Code = null.String{}
	if role == user.RoleStudent {
		usr.Code = null.StringFrom(code)
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if !exists {
		usr.CreatedAt = time.Now().UTC()
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}
	return core.RunInTx(ctx, cli.db, func(tx core.DBExecutor) error {
		if roleChanged {
			assigned, err := cli.usrRepo.HasAssignments(ctx, usr.ID, tx)
			if err != nil {
				return err
			}
			if assigned {
				return user.ErrRoleInUse
			}
		}
		if _, err := cli.usrRepo.UpdateUser(ctx, usr, tx); err != nil {
			return err
		}
		return cli.usrRepo.SetUserPassword(ctx, usr.ID, usr.PasswordHash, tx)
	})
}

package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser creates a user, or sets the password of an existing one.
func (cli *commandLine) addUser(ctx context.Context, name, email string, role user.Role, pwd string) error {
	if role != user.RoleTeacher && role != user.RoleStudent {
		return errors.Errorf("invalid role %q", role)
	}
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if _, err = cli.usrSvc.SetPassword(ctx, usr, pwd); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %s already exists; password updated\n", email)
		return nil
	case errors.Cause(err) != user.ErrNotFound:
		return err
	}

	usr, err = cli.usrSvc.Register(ctx, user.NewUser{
		Name:     core.CleanString(name),
		Email:    email,
		Password: pwd,
		Role:     role,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s created (id %d)\n", usr.Email, usr.ID)
	return nil
}

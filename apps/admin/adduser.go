package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// addUser creates a user.User, or activates and updates the one owning uname or email.
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()

	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if nu.Name == "" {
		nu.Name = core.CleanString(uname)
	}
	if nu.Name == "" {
		nu.Name = core.CleanString(email)
	}
	if isAdmin {
		nu.Roles = user.AllRoles
	}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}

	usr, err := cli.findUser(ctx, nu.Username, nu.Email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, nu)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %s created\n", usr.ID)
		return nil
	}

	if err = cli.usrSvc.CheckUniqueness(ctx, nu.Username, nu.Email, usr); err != nil {
		return err
	}
	if name != "" {
		usr.Name = nu.Name
	}
	if nu.Username != "" {
		usr.Username = nu.Username
	}
	if nu.Email != "" {
		usr.Email = nu.Email
	}
	usr.IsActive = true
	if isAdmin {
		usr.Roles = nu.Roles
	}
	if _, err = cli.usrSvc.SetPassword(ctx, usr, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s updated\n", usr.ID)
	return nil
}

func (cli *commandLine) findUser(ctx context.Context, uname, email string) (user.User, error) {
	for _, key := range []string{uname, email} {
		if key == "" {
			continue
		}
		usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, key)
		if err == nil || errors.Cause(err) != user.ErrNotFound {
			return usr, err
		}
	}
	return user.User{}, user.ErrNotFound
}

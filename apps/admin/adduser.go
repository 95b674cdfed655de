package main

import (
	"context"
	"fmt"

	"github.com/trezcool/educator/core/user"
)

// addUser creates an active user after running the same validation as the register endpoint.
func (cli *commandLine) addUser(uname, email, phone, role, pwd string) error {
	ctx := context.Background()
	nu := user.NewUser{
		Username:        uname,
		Email:           email,
		PhoneNumber:     phone,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := nu.Validate(ctx, cli.validate, cli.users); err != nil {
		return err
	}
	usr, err := cli.users.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Printf("created %s %s (%s)\n", usr.Role, usr.Username, usr.ID)
	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	uname = core.CleanString(uname, true /* lower */)
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname}})
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err := cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %q updated\n", usr.Username)
	return nil
}

package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) recalcProgress(ctx context.Context, courseID string) error {
	changed, err := cli.enrollments.RecalculateCourse(ctx, courseID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d enrollment(s) updated\n", changed)
	return nil
}

func (cli *commandLine) recalcLevels(ctx context.Context) error {
	changed, err := cli.xp.RecalculateLevels(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d level(s) updated\n", changed)
	return nil
}

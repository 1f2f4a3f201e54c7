package main

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// rowsFunc produces the rows of a listing command for a signed-in session.
type rowsFunc func(ctx context.Context, a *app, parsed *values.Values, emit func(types.Row) error) error

// listCommand is a glazed command over the backend resources. The session
// is opened and checked in the cobra pre-run so a missing credential is
// reported like any other command error; the glaze run only emits rows.
type listCommand struct {
	*cmds.CommandDescription
	rows rowsFunc
	app  *app
}

var _ cmds.GlazeCommand = &listCommand{}

func (c *listCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *values.Values, gp middlewares.Processor) error {
	if c.app == nil {
		return errors.New("[listCommand] session not opened")
	}
	return c.rows(ctx, c.app, parsed, func(row types.Row) error {
		return gp.AddRow(ctx, row)
	})
}

func buildListCommand(opts *rootOptions, desc *cmds.CommandDescription, rows rowsFunc) (*cobra.Command, error) {
	c := &listCommand{CommandDescription: desc, rows: rows}
	cmd, err := cli.BuildCobraCommand(c)
	if err != nil {
		return nil, errors.Wrap(err, "[buildListCommand] failed to build command")
	}

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		if err := requireSession(cmd.Context(), a); err != nil {
			return closeApp(cmd, opts, a, err)
		}
		c.app = a
		return nil
	}
	cmd.PostRunE = func(cmd *cobra.Command, _ []string) error {
		a := c.app
		c.app = nil
		if a == nil {
			return nil
		}
		return closeApp(cmd, opts, a, nil)
	}
	return cmd, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func watchCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow confirmed changes published by other sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}
			client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
			if err != nil {
				return err
			}
			defer client.Close()

			var only core.Principal
			if !all {
				only = core.Principal(a.cfg.PrincipalID)
			}
			a.logger.Info("Watching changes", log.FieldOperation, log.OpConsume, log.FieldPrincipal, string(only))
			err = client.ConsumeChanges(cmd.Context(), printChanges(os.Stdout, only))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "show changes of every principal")
	return cmd
}

// printChanges writes one line per change, skipping other principals when
// only is set.
func printChanges(out io.Writer, only core.Principal) amqp.Handler {
	return func(_ context.Context, msg *amqp.ChangeMessage) error {
		c := msg.Change
		if only != "" && c.Principal != only {
			return nil
		}
		_, err := fmt.Fprintf(out, "%s %s %s %s %s\n",
			c.At.Local().Format(time.DateTime), c.Principal, c.Kind, c.Op, c.ID)
		return err
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luma/rconctl/client"
)

// Use the single packet exchange
var simple bool

func init() {
	ExecCmd.Flags().BoolVar(&simple, "simple", false, "Read a single response packet, for servers that cannot handle multi-packet responses")
}

var ExecCmd = &cobra.Command{
	Use:   "exec <command...>",
	Short: "Run a command on the server and print its output",
	Long: `Run a command on the server and print its output

Usage
	rconctl exec list
	rconctl exec --simple say hello

`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := notifyContext(context.Background(), os.Interrupt)
		defer signalStop()

		conf, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync()

		session, err := openSession(ctx, conf, log)
		if err != nil {
			return err
		}
		// Closing the session is the only way to interrupt a pending read
		go func() {
			<-ctx.Done()
			session.Close()
		}()
		defer session.Close()

		command := strings.Join(args, " ")

		var output string
		if simple {
			output, err = session.SendCommandSimple(command)
		} else {
			output, err = session.SendCommand(command)
		}

		if err != nil {
			if errors.Is(err, client.ErrSessionClosed) && ctx.Err() != nil {
				return ctx.Err()
			}

			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(output, "\n"))

		return nil
	},
}

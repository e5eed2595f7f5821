package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/rconctl/client"
)

var ListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print everything the server sends on its own",
	Long: `Print everything the server sends on its own, such as log lines,
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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

		log.Info("Listening", zap.String("address", conf.Address))

		for {
			line, err := session.Listen()
			if err != nil {
				if errors.Is(err, client.ErrSessionClosed) && ctx.Err() != nil {
					return nil
				}

				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	},
}

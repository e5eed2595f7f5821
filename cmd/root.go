package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/rconctl/client"
	"github.com/luma/rconctl/cmd/gen"
	"github.com/luma/rconctl/internal/env"
)

var (
	// The RCON server to connect to, overrides RCON_ADDRESS
	address string

	// The RCON password, overrides RCON_PASSWORD
	password string
)

var (
	signalNotifyContext = signal.NotifyContext

	// notifyContext returns a context cancelled on the given signals
	notifyContext = signalNotifyContext
)

var RootCmd = &cobra.Command{
	Use:   "rconctl",
	Short: "Talk to game servers over RCON",
	Long: `Talk to game servers over RCON

Connection settings are read from RCON_* environment variables, and from
.env.local if it exists.`,
	SilenceUsage: true,
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&address, "address", "a", "", "The RCON server address, host:port")
	flags.StringVarP(&password, "password", "p", "", "The RCON password")

	RootCmd.AddCommand(ExecCmd, ListenCmd, ServeCmd, VersionCmd, gen.RootCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides and builds the logger.
func setup(ctx context.Context) (*env.Config, *zap.Logger, error) {
	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	if address != "" {
		conf.Address = address
	}

	if password != "" {
		conf.Password = password
	}

	log, err := env.MakeLogger(conf.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return conf, log, nil
}

// openSession connects and authenticates.
func openSession(ctx context.Context, conf *env.Config, log *zap.Logger) (*client.Session, error) {
	session, err := client.Open(ctx, conf.Address, sessionOptions(conf, log))
	if err != nil {
		return nil, err
	}

	if err := session.AuthenticateOrFail(conf.Password); err != nil {
		session.Close()
		return nil, fmt.Errorf("Failed to authenticate with %s: %w", conf.Address, err)
	}

	log.Debug("Authenticated", zap.String("address", conf.Address))

	return session, nil
}

func sessionOptions(conf *env.Config, log *zap.Logger) client.Options {
	return client.Options{
		ReadBufferSize:  conf.ReadBufferSize,
		WriteBufferSize: conf.WriteBufferSize,
		MaxPacketLength: conf.MaxPacketLength,
		DialTimeout:     conf.DialTimeout,
		KeepAlive:       conf.KeepAlive,
		Log:             log.Named("session"),
	}
}

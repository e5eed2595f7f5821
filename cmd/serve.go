package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/rconctl/client"
	"github.com/luma/rconctl/gateway"
	"github.com/luma/rconctl/storage"
)

var (
	// The address to serve HTTP on, overrides RCON_HTTP_ADDRESS
	httpAddress string

	// Where the transcript is kept between runs, overrides RCON_TRANSCRIPT_FILE
	transcriptFile string
)

func init() {
	flags := ServeCmd.Flags()

	flags.StringVar(&httpAddress, "http", "", "The address to listen for HTTP requests on")
	flags.StringVar(&transcriptFile, "transcript", "", "Restore the transcript from this file at start and save it there on shutdown")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose an authenticated RCON session over HTTP",
	Long: `Expose an authenticated RCON session over HTTP

Usage
	rconctl serve --http 127.0.0.1:7362

	curl -XPOST localhost:7362/exec -d '{"command":"list"}'
	curl 'localhost:7362/transcript?path=entries.#.command'
	curl -N localhost:7362/transcript/updates

A command that breaks the RCON session fails with 502. The next command
reconnects and authenticates again before it is sent.

`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync()

		if httpAddress != "" {
			conf.HTTPAddress = httpAddress
		}

		if transcriptFile != "" {
			conf.TranscriptFile = transcriptFile
		}

		session, err := openSession(ctx, conf, log)
		if err != nil {
			return err
		}

		commander := gateway.NewReconnector(session, func() (*client.Session, error) {
			return openSession(ctx, conf, log)
		}, log.Named("reconnector"))

		store := storage.NewInmemoryStore(conf.TranscriptSize)

		if conf.TranscriptFile != "" {
			if err := storage.RestoreFile(store, conf.TranscriptFile); err != nil {
				return multierr.Append(err, commander.Close())
			}
		}

		router := gateway.NewRouter(gateway.Options{
			Commander: commander,
			Store:     store,
			Debug:     conf.DebugHTTP,
			Log:       log.Named("http"),
		})

		s := &http.Server{
			Addr:    conf.HTTPAddress,
			Handler: router,
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
				signalStop()
			}
		}()

		log.Info("Listening",
			zap.String("rcon", conf.Address),
			zap.String("http", conf.HTTPAddress))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		// Closing the store ends the update streams, which Shutdown waits for
		err = multierr.Combine(
			store.Close(),
			s.Shutdown(shutdownCtx),
			commander.Close(),
		)

		if conf.TranscriptFile != "" {
			err = multierr.Append(err, storage.BackupFile(store, conf.TranscriptFile))
		}

		if err != nil {
			log.Error("Forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

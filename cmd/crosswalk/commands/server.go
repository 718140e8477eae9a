package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/The-Politico/crosswalk/config"
	"github.com/The-Politico/crosswalk/errors"
	"github.com/The-Politico/crosswalk/logger"
	"github.com/The-Politico/crosswalk/server"
)

// ServerCmd starts the crosswalk HTTP API server
var ServerCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve"},
	Short:   "Start the crosswalk API server",
	Long:    "Launch the crosswalk entity resolution API server.",
	RunE:    runServer,
}

var (
	serverPortFlag   int
	serverDBPathFlag string
	serverNoAuthFlag bool
)

func init() {
	ServerCmd.Flags().IntVar(&serverPortFlag, "port", 0, "Port to listen on (overrides config)")
	ServerCmd.Flags().StringVar(&serverDBPathFlag, "db-path", "", "Custom database path (overrides config)")
	ServerCmd.Flags().BoolVar(&serverNoAuthFlag, "no-auth", false, "Disable token authentication")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if serverPortFlag != 0 {
		cfg.Server.Port = serverPortFlag
	}
	if serverNoAuthFlag {
		cfg.Server.AuthEnabled = false
	}

	database, err := openDatabase(serverDBPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	srv := server.NewServer(database, cfg, logger.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Logger.Infow("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

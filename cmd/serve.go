package cmd

import (
	"os/signal"
	"syscall"

	"github.com/AnyUserName/saveimg/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Serves POST /convert, POST /save, POST /copy, GET /menu and GET /ping.
The settings file is watched and reloaded while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, log, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Settings.Watch {
		if err := a.store.Watch(ctx); err != nil {
			return err
		}
	}

	srvCfg := cfg.Server
	if serveAddr != "" {
		srvCfg.Addr = serveAddr
	}
	return server.New(srvCfg, a.coord, log).Run(ctx)
}


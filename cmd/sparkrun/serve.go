package sparkrun

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/nyambati/sparkrun/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start a local invoke server",
	Long:  `Serve the Lambda invoke endpoint locally. POST an event to /2015-03-31/functions/function/invocations to run the handler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetString("port")
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}

		h, err := newHandler(ctx, cfg, logger)
		if err != nil {
			return err
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.NewInvokeServer(&cfg.Server, h, logger).Start(sigCtx)
	},
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "port to listen on (default $SPARKRUN_PORT or 9000)")
	serveCmd.Flags().String("host", "", "address to bind (default $SPARKRUN_HOST or 127.0.0.1)")
	rootCmd.AddCommand(serveCmd)
}

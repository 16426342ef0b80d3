package sparkrun

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nyambati/sparkrun/internal/client"
	"github.com/nyambati/sparkrun/internal/event"
	"github.com/nyambati/sparkrun/internal/handler"
	"github.com/spf13/cobra"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "invoke the handler once with an event file",
	Long: `Run one invocation with the event read from --event (JSON or YAML).
Without --url the handler runs in this process; with --url the event is posted
to a running "sparkrun serve".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eventFile, _ := cmd.Flags().GetString("event")
		url, _ := cmd.Flags().GetString("url")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		evt := event.Event{}
		if eventFile != "" {
			var err error
			if evt, err = event.Load(eventFile); err != nil {
				return err
			}
		}

		if url != "" {
			payload, err := evt.JSON()
			if err != nil {
				return err
			}
			c := client.NewInvokeClient(timeout, logger.WithField("event_file", eventFile))
			response, _, err := c.SendRequest(ctx, url, []byte(payload))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(response))
			return nil
		}

		h, err := newHandler(ctx, cfg, logger)
		if err != nil {
			return err
		}
		return h.Handle(handler.WithInvocationID(ctx, uuid.NewString()), evt)
	},
}

func init() {
	invokeCmd.Flags().StringP("event", "e", "", "path to a JSON or YAML event file")
	invokeCmd.Flags().String("url", "", "invoke endpoint of a running sparkrun serve")
	invokeCmd.Flags().Duration("timeout", 15*time.Minute, "request timeout when posting to --url")
	rootCmd.AddCommand(invokeCmd)
}

package sparkrun

import (
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/nyambati/sparkrun/internal/handler"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "run as the AWS Lambda function handler",
	Long:  `Start the Lambda runtime loop. Every invocation downloads $SPARK_SCRIPT from $SCRIPT_BUCKET and spark-submits it with the event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startLambda()
	},
}

func startLambda() error {
	h, err := newHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("starting lambda handler")
	awslambda.Start(lambdaHandler(h))
	return nil
}

// lambdaHandler decodes raw invocation payloads into an event.Event.
func lambdaHandler(h *handler.Handler) awslambda.Handler {
	return awslambda.NewHandler(h.Handle)
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}

package sparkrun

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nyambati/sparkrun/internal/config"
	"github.com/nyambati/sparkrun/internal/environment"
	"github.com/nyambati/sparkrun/internal/handler"
	"github.com/nyambati/sparkrun/internal/launcher"
	"github.com/nyambati/sparkrun/internal/mocks"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLambdaHandlerDecodesPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	l := mocks.NewMockLauncher(ctrl)
	env := environment.NewMapEnvironment(nil)
	log, _ := test.NewNullLogger()

	f.EXPECT().Fetch(gomock.Any(), "scripts", "jobs/etl.py", "/tmp/spark_script.py").Return(nil)

	var submission *launcher.Submission
	l.EXPECT().
		Launch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, s *launcher.Submission) error {
			submission = s
			return nil
		})

	h := handler.NewHandler(
		config.Spark{SubmitBinary: "spark-submit", LocalScriptPath: "/tmp/spark_script.py"},
		f, l, env, logrus.NewEntry(log),
		handler.WithScriptLoader(func() (*config.Script, error) {
			return &config.Script{Bucket: "scripts", Key: "jobs/etl.py"}, nil
		}),
	)

	payload := `{"INPUT_PATH":"s3://in","PARTITIONS":12345678901234567890,"RATIO":1.50,"DRY_RUN":false}`
	_, err := lambdaHandler(h).Invoke(context.Background(), []byte(payload))
	require.NoError(t, err)

	require.NotNil(t, submission)
	assert.Equal(t, json.Number("12345678901234567890"), submission.Event["PARTITIONS"])
	assert.Equal(t, json.Number("1.50"), submission.Event["RATIO"])

	partitions, _ := env.Get("PARTITIONS")
	ratio, _ := env.Get("RATIO")
	dryRun, _ := env.Get("DRY_RUN")
	input, _ := env.Get("INPUT_PATH")
	assert.Equal(t, "12345678901234567890", partitions)
	assert.Equal(t, "1.50", ratio)
	assert.Equal(t, "false", dryRun)
	assert.Equal(t, "s3://in", input)
}

package launcher_test

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nyambati/sparkrun/internal/environment"
	sparkerrors "github.com/nyambati/sparkrun/internal/errors"
	"github.com/nyambati/sparkrun/internal/event"
	"github.com/nyambati/sparkrun/internal/launcher"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

const fakeSparkSubmit = `#!/bin/sh
printf '%s\n' "$@" > "$ARGS_OUT"
printf '%s' "$JAVA_TOOL_OPTIONS" > "$ENV_OUT"
echo "driver started"
echo "executor lost" >&2
exit "${EXIT_CODE:-0}"
`

func TestBuildArgs(t *testing.T) {
	evt := event.Event{"INPUT_PATH": "s3://in"}

	args, err := launcher.BuildArgs(environment.CompatibilityFlags, "/tmp/spark_script.py", evt)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"--driver-java-options", environment.CompatibilityFlags,
		"--conf", "spark.driver.extraJavaOptions=" + environment.CompatibilityFlags,
		"--conf", "spark.executor.extraJavaOptions=" + environment.CompatibilityFlags,
		"/tmp/spark_script.py",
		"--event", `{"INPUT_PATH":"s3://in"}`,
	}, args)
}

func TestProcessLauncher(t *testing.T) {
	tests := []struct {
		name     string
		exitCode string
		binary   string
		wantCode int
		wantErr  bool
	}{
		{
			name:     "TestSuccessfulSubmit",
			exitCode: "0",
		},
		{
			name:     "TestNonZeroExit",
			exitCode: "3",
			wantCode: 3,
			wantErr:  true,
		},
		{
			name:     "TestMissingBinary",
			binary:   "/nonexistent/spark-submit",
			wantCode: -1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := fs.NewDir(t, "sparkrun",
				fs.WithFile("spark-submit", fakeSparkSubmit, fs.WithMode(0o755)),
				fs.WithFile("spark_script.py", "print('hi')"),
			)
			defer dir.Remove()

			binary := tt.binary
			if binary == "" {
				binary = dir.Join("spark-submit")
			}

			logger, hook := test.NewNullLogger()
			l := launcher.NewProcessLauncher(logrus.NewEntry(logger))

			evt := event.Event{"OUTPUT_PATH": "s3://out"}
			err := l.Launch(context.Background(), &launcher.Submission{
				Binary:     binary,
				ScriptPath: dir.Join("spark_script.py"),
				Flags:      environment.CompatibilityFlags,
				Event:      evt,
				Environ: []string{
					"PATH=/usr/bin:/bin",
					"ARGS_OUT=" + dir.Join("args.out"),
					"ENV_OUT=" + dir.Join("env.out"),
					"EXIT_CODE=" + tt.exitCode,
					"JAVA_TOOL_OPTIONS=" + environment.CompatibilityFlags,
				},
			})

			if tt.wantErr {
				var submitErr *sparkerrors.SparkSubmitError
				require.ErrorAs(t, err, &submitErr)
				assert.Equal(t, tt.wantCode, submitErr.ExitCode)
				return
			}
			require.NoError(t, err)

			args, err := os.ReadFile(dir.Join("args.out"))
			require.NoError(t, err)
			assert.Equal(t, []string{
				"--driver-java-options", environment.CompatibilityFlags,
				"--conf", "spark.driver.extraJavaOptions=" + environment.CompatibilityFlags,
				"--conf", "spark.executor.extraJavaOptions=" + environment.CompatibilityFlags,
				dir.Join("spark_script.py"),
				"--event", `{"OUTPUT_PATH":"s3://out"}`,
			}, strings.Split(strings.TrimSuffix(string(args), "\n"), "\n"))

			javaOpts, err := os.ReadFile(dir.Join("env.out"))
			require.NoError(t, err)
			assert.Equal(t, environment.CompatibilityFlags, string(javaOpts))

			found := false
			for _, entry := range hook.AllEntries() {
				if strings.HasPrefix(entry.Message, "spark-submit cmd: "+binary+" --driver-java-options") {
					found = true
				}
			}
			assert.True(t, found, "command line was not logged")

			assert.Eventually(t, func() bool {
				for _, entry := range hook.AllEntries() {
					if entry.Message == "executor lost" {
						return entry.Level == logrus.InfoLevel && entry.Data["stream"] == "stderr"
					}
				}
				return false
			}, time.Second, 10*time.Millisecond, "stderr was not streamed at info level")
		})
	}
}

func TestProcessLauncherCancelledContext(t *testing.T) {
	dir := fs.NewDir(t, "sparkrun", fs.WithFile("spark-submit", "#!/bin/sh\nsleep 30\n", fs.WithMode(0o755)))
	defer dir.Remove()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := launcher.NewProcessLauncher(logrus.NewEntry(&logrus.Logger{Out: io.Discard}))
	err := l.Launch(ctx, &launcher.Submission{
		Binary:     dir.Join("spark-submit"),
		ScriptPath: "/tmp/spark_script.py",
		Flags:      environment.CompatibilityFlags,
	})
	assert.Error(t, err)
	assert.Equal(t, sparkerrors.Fatal, sparkerrors.KindOf(err))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	sparkerrors "github.com/nyambati/sparkrun/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		file    string
		want    func(t *testing.T, c *Config)
		wantKey string
	}{
		{
			name: "TestDefaults",
			env:  map[string]string{ScriptBucketEnv: "scripts", SparkScriptEnv: "jobs/etl.py"},
			want: func(t *testing.T, c *Config) {
				assert.Equal(t, "scripts", c.ScriptBucket)
				assert.Equal(t, "jobs/etl.py", c.SparkScript)
				assert.Equal(t, LauncherProcess, c.Launcher)
				assert.Equal(t, DefaultSubmitBinary, c.Spark.SubmitBinary)
				assert.Equal(t, DefaultLocalScriptPath, c.Spark.LocalScriptPath)
				assert.Equal(t, "info", c.Log.Level)
				assert.Equal(t, DefaultPort, c.Server.Port)
			},
		},
		{
			name:    "TestMissingBucket",
			env:     map[string]string{SparkScriptEnv: "jobs/etl.py"},
			wantKey: ScriptBucketEnv,
		},
		{
			name:    "TestMissingScript",
			env:     map[string]string{ScriptBucketEnv: "scripts"},
			wantKey: SparkScriptEnv,
		},
		{
			name: "TestContainerLauncherNeedsImage",
			env: map[string]string{
				ScriptBucketEnv:     "scripts",
				SparkScriptEnv:      "jobs/etl.py",
				"SPARKRUN_LAUNCHER": "container",
			},
			wantKey: "SPARKRUN_IMAGE",
		},
		{
			name: "TestUnknownLauncher",
			env: map[string]string{
				ScriptBucketEnv:     "scripts",
				SparkScriptEnv:      "jobs/etl.py",
				"SPARKRUN_LAUNCHER": "yarn",
			},
			wantKey: "SPARKRUN_LAUNCHER",
		},
		{
			name: "TestFileValuesWithEnvOverride",
			env: map[string]string{
				SparkScriptEnv:        "jobs/override.py",
				"SPARK_SUBMIT_BINARY": "/opt/spark/bin/spark-submit",
			},
			file: "script_bucket: from-file\nspark_script: jobs/file.py\nlog:\n  format: json\n",
			want: func(t *testing.T, c *Config) {
				assert.Equal(t, "from-file", c.ScriptBucket)
				assert.Equal(t, "jobs/override.py", c.SparkScript)
				assert.Equal(t, "/opt/spark/bin/spark-submit", c.Spark.SubmitBinary)
				assert.Equal(t, "json", c.Log.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			dir := t.TempDir()
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ".sparkrun.yaml"), []byte(tt.file), 0o644))
			}

			c, err := Load(dir)
			if tt.wantKey != "" {
				var configErr *sparkerrors.ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Equal(t, tt.wantKey, configErr.Key)
				assert.Equal(t, sparkerrors.Fatal, sparkerrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			tt.want(t, c)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(SparkScriptEnv, "already-set.py")

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SCRIPT_BUCKET=dotenv-bucket\nSPARK_SCRIPT=dotenv.py\n"), 0o644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "dotenv-bucket", os.Getenv(ScriptBucketEnv))
	assert.Equal(t, "already-set.py", os.Getenv(SparkScriptEnv))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestLoadSettingsSkipsInvocationKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPARKRUN_PORT", "9100")

	c, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, c.ScriptBucket)
	assert.Equal(t, "9100", c.Server.Port)

	t.Setenv("LOG_FORMAT", "xml")
	_, err = LoadSettings(t.TempDir())
	var configErr *sparkerrors.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "LOG_FORMAT", configErr.Key)
}

func TestLoadScript(t *testing.T) {
	clearEnv(t)
	t.Setenv(ScriptBucketEnv, "scripts")
	t.Setenv(SparkScriptEnv, "jobs/etl.py")
	// values an event may have copied into the environment
	t.Setenv("SPARK_SUBMIT_BINARY", "")
	t.Setenv("LOG_FORMAT", "xml")

	script, err := LoadScript(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Script{Bucket: "scripts", Key: "jobs/etl.py"}, script)

	t.Setenv(SparkScriptEnv, "")
	_, err = LoadScript(t.TempDir())
	var configErr *sparkerrors.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, SparkScriptEnv, configErr.Key)
}

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	sparkerrors "github.com/nyambati/sparkrun/internal/errors"
	"github.com/spf13/viper"
)

const (
	ScriptBucketEnv = "SCRIPT_BUCKET"
	SparkScriptEnv  = "SPARK_SCRIPT"

	DefaultSubmitBinary    = "spark-submit"
	DefaultLocalScriptPath = "/tmp/spark_script.py"
	DefaultPort            = "9000"
)

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"script_bucket":          ScriptBucketEnv,
	"spark_script":           SparkScriptEnv,
	"launcher":               "SPARKRUN_LAUNCHER",
	"spark.submit_binary":    "SPARK_SUBMIT_BINARY",
	"spark.local_script":     "SPARK_LOCAL_SCRIPT",
	"container.image":        "SPARKRUN_IMAGE",
	"container.architecture": "SPARKRUN_ARCH",
	"log.level":              "LOG_LEVEL",
	"log.format":             "LOG_FORMAT",
	"server.host":            "SPARKRUN_HOST",
	"server.port":            "SPARKRUN_PORT",
}

// fieldEnv names the variable to blame when a struct field fails validation.
var fieldEnv = map[string]string{
	"Config.ScriptBucket":          ScriptBucketEnv,
	"Config.SparkScript":           SparkScriptEnv,
	"Config.Launcher":              "SPARKRUN_LAUNCHER",
	"Config.Spark.SubmitBinary":    "SPARK_SUBMIT_BINARY",
	"Config.Spark.LocalScriptPath": "SPARK_LOCAL_SCRIPT",
	"Config.Log.Level":             "LOG_LEVEL",
	"Config.Log.Format":            "LOG_FORMAT",
	"Config.Server.Port":           "SPARKRUN_PORT",
	"Script.Bucket":                ScriptBucketEnv,
	"Script.Key":                   SparkScriptEnv,
}

var validate = validator.New()

// Load builds the handler configuration from the environment, with an
// optional .sparkrun.yaml found in paths (the working directory by default).
// Environment variables win over the file.
func Load(paths ...string) (*Config, error) {
	config, err := load(paths)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadSettings is Load without the per-invocation keys (SCRIPT_BUCKET,
// SPARK_SCRIPT), for building long lived components at startup.
func LoadSettings(paths ...string) (*Config, error) {
	config, err := load(paths)
	if err != nil {
		return nil, err
	}
	if err := config.validate("ScriptBucket", "SparkScript"); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadScript reads only SCRIPT_BUCKET and SPARK_SCRIPT. The handler calls it
// on every invocation; everything else comes from LoadSettings at startup, so
// event data copied into the environment cannot change what gets launched.
func LoadScript(paths ...string) (*Script, error) {
	config, err := load(paths)
	if err != nil {
		return nil, err
	}
	script := &Script{Bucket: config.ScriptBucket, Key: config.SparkScript}
	if err := validate.Struct(script); err != nil {
		return nil, toConfigError(err)
	}
	return script, nil
}

func load(paths []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, sparkerrors.NewConfigError(env, err.Error())
		}
	}

	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	v.SetConfigName(".sparkrun")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, sparkerrors.NewConfigError("", fmt.Sprintf("failed to read config file: %v", err))
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, sparkerrors.NewConfigError("", fmt.Sprintf("failed to unmarshal config: %v", err))
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("launcher", LauncherProcess)
	v.SetDefault("spark.submit_binary", DefaultSubmitBinary)
	v.SetDefault("spark.local_script", DefaultLocalScriptPath)
	v.SetDefault("container.architecture", "amd64")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", DefaultPort)
}

// Validate reports the first invalid setting as a ConfigError naming its
// environment variable.
func (c *Config) Validate() error {
	return c.validate()
}

func (c *Config) validate(except ...string) error {
	var err error
	if len(except) > 0 {
		err = validate.StructExcept(c, except...)
	} else {
		err = validate.Struct(c)
	}
	if err != nil {
		return toConfigError(err)
	}

	if c.Launcher == LauncherContainer && c.Container.Image == "" {
		return sparkerrors.NewConfigError("SPARKRUN_IMAGE", "required when launcher is container")
	}
	return nil
}

func toConfigError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		key, ok := fieldEnv[fe.Namespace()]
		if !ok {
			key = fe.Namespace()
		}
		return sparkerrors.NewConfigError(key, fmt.Sprintf("failed on %q validation", fe.Tag()))
	}
	return sparkerrors.NewConfigError("", err.Error())
}

// LoadDotEnv loads .env files for local runs. Variables already set are kept
// and a missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			present = append(present, file)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// IsLambda reports whether the process runs inside a Lambda sandbox.
func IsLambda() bool {
	_, ok := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME")
	return ok
}

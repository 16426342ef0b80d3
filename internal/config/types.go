package config

const (
	LauncherProcess   = "process"
	LauncherContainer = "container"
)

type Spark struct {
	SubmitBinary    string `mapstructure:"submit_binary" validate:"required"`
	LocalScriptPath string `mapstructure:"local_script" validate:"required"`
}

type Container struct {
	Image        string `mapstructure:"image"`
	Architecture string `mapstructure:"architecture"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port" validate:"required,numeric"`
}

// Script locates the Spark script for one invocation.
type Script struct {
	Bucket string `validate:"required"`
	Key    string `validate:"required"`
}

type Config struct {
	ScriptBucket string    `mapstructure:"script_bucket" validate:"required"`
	SparkScript  string    `mapstructure:"spark_script" validate:"required"`
	Launcher     string    `mapstructure:"launcher" validate:"oneof=process container"`
	Spark        Spark     `mapstructure:"spark"`
	Container    Container `mapstructure:"container"`
	Log          Log       `mapstructure:"log"`
	Server       Server    `mapstructure:"server"`
}

package launcher

import (
	"strings"

	"github.com/nyambati/sparkrun/internal/event"
)

const (
	driverExtraJavaOptions   = "spark.driver.extraJavaOptions"
	executorExtraJavaOptions = "spark.executor.extraJavaOptions"
)

// BuildArgs returns the spark-submit arguments, without the binary:
//
//	--driver-java-options FLAGS
//	--conf spark.driver.extraJavaOptions=FLAGS
//	--conf spark.executor.extraJavaOptions=FLAGS
//	SCRIPT --event EVENT_JSON
func BuildArgs(flags, scriptPath string, evt event.Event) ([]string, error) {
	payload, err := evt.JSON()
	if err != nil {
		return nil, err
	}

	return []string{
		"--driver-java-options", flags,
		"--conf", driverExtraJavaOptions + "=" + flags,
		"--conf", executorExtraJavaOptions + "=" + flags,
		scriptPath,
		"--event", payload,
	}, nil
}

// CommandLine joins binary and args for logging.
func CommandLine(binary string, args []string) string {
	return strings.Join(append([]string{binary}, args...), " ")
}

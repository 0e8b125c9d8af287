package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/fscifa/totepipe/constants"
)

// GetEnvVarName converts name into an environment variable using EnvVarPrefix and the name converted to upper
// case with dashes converted to underscores, e.g. raw-bucket becomes TP_RAW_BUCKET.
func GetEnvVarName(name string) string {
	n := strings.ToUpper(strings.Replace(strings.TrimSpace(name), "-", "_", -1))
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}

// ReadValueFromEnv will read environment variable name and populate the supplied val.
// If the env var is not set then return an error.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	}
	return fmt.Errorf("value for environment variable %v not found", name)
}

// ReadValueFromEnvWithDefault will read the value of name from the environment.
// If it's not set then it will apply the supplied defaultValue.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" { // if the environment variable is not set and we have been given a default value...
		v = defaultValue
	}
	return
}

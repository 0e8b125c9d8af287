package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/fscifa/totepipe/actions"
	"github.com/fscifa/totepipe/config"
	c "github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/helper"
	"github.com/fscifa/totepipe/logger"
	"github.com/pkg/errors"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set before the other init() functions run.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	lambdaMode = false
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine the stage...
		twelveFactorMode = true
		if strings.ToLower(mode) == "lambda" {
			lambdaMode = true
		}
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarStage            = c.EnvVarPrefix + "_" + "STAGE"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if envVarTwelveFactorMode is "lambda"
)

// twelveFactorRequest builds the stage request from a trigger payload. A stage
// named in the payload wins over envVarStage.
func twelveFactorRequest(payload map[string]interface{}) (actions.StageRequest, error) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	if s, _ := payload["stage"].(string); strings.TrimSpace(s) == "" {
		payload["stage"] = helper.ReadValueFromEnvWithDefault(envVarStage, c.StageRun)
	}
	return actions.DecodeStageRequest(payload)
}

// runTwelveFactor loads settings from the environment only and runs the stage in payload.
func runTwelveFactor(ctx context.Context, payload map[string]interface{}) ([]*actions.StageResult, error) {
	cfg := config.Default()
	err := cfg.MergeEnv()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		twelveFactorLogger().Error("Error: ", err)
		return nil, err
	}
	log := newLogger(cfg)
	log.Info("Totepipe is running in 12 Factor mode...")
	req, err := twelveFactorRequest(payload)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	log.Debug(envVarStage, "=", req.Stage)
	results, err := runStage(ctx, cfg, req)
	if err != nil {
		log.Error("Error: ", err)
	}
	return results, err
}

// handleLambdaEvent is the AWS Lambda handler. Events look like {"stage": "transform"}.
func handleLambdaEvent(ctx context.Context, event map[string]interface{}) ([]*actions.StageResult, error) {
	return runTwelveFactor(ctx, event)
}

func execute12FactorMode(ctx context.Context) error {
	results, err := runTwelveFactor(ctx, nil)
	if perr := printResults(os.Stdout, results); perr != nil && err == nil {
		err = errors.Wrap(perr, "error printing results")
	}
	return err
}

// twelveFactorLogger is used before settings are loaded.
func twelveFactorLogger() logger.Logger {
	return logger.NewLogger(c.ServiceName, helper.ReadValueFromEnvWithDefault(helper.GetEnvVarName(config.KeyLogLevel), "warn"), false)
}

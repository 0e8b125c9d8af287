package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/fscifa/totepipe/actions"
	"github.com/fscifa/totepipe/config"
	"github.com/fscifa/totepipe/constants"
	"github.com/fscifa/totepipe/logger"
	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2022-11-21T09:00+0000"
	stackDumpOnPanic bool
	configFile       string
	flags            = newFlagValues()
)

var rootCmd = &cobra.Command{
	Use:   "tp",
	Short: "Totepipe moves Terrific Totes sales data from the operational database into the warehouse",
	Long: `Totepipe moves Terrific Totes sales data from the operational database into the warehouse.

  extract    copies changed rows of the source tables to the raw bucket as JSON
  transform  builds the star schema from the latest raw files as parquet
  load       inserts the latest star schema into the warehouse

Settings come from ~/.totepipe/config.yaml, TP_ environment variables and flags,
in increasing order of precedence.`,
	SilenceUsage: true,
}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	// Global flags.
	fs := rootCmd.PersistentFlags()
	fs.SortFlags = false
	switches.addFlag(fs, &configFile, "config-file")
	flags.addConfigFlags(fs)
	fs.BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = fs.MarkHidden("print-stack")
}

// loadConfig returns the validated settings for cmd: defaults, config file,
// environment and then the flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	flags.apply(cmd.Flags(), cfg)
	if stackDumpOnPanic {
		cfg.StackDump = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewLogger(constants.ServiceName, cfg.LogLevel, cfg.StackDump)
}

// newEnv builds the stage environment; tests replace it.
var newEnv = func(cfg *config.Config) (*actions.Env, error) {
	return actions.NewEnv(cfg, newLogger(cfg))
}

// runStage runs req with a fresh environment and closes its connections.
func runStage(ctx context.Context, cfg *config.Config, req actions.StageRequest) ([]*actions.StageResult, error) {
	env, err := newEnv(cfg)
	if err != nil {
		return nil, err
	}
	defer env.Close()
	return actions.RunStage(ctx, env, req)
}

// printResults writes results to w as YAML.
func printResults(w io.Writer, results []*actions.StageResult) error {
	if len(results) == 0 {
		return nil
	}
	b, err := yaml.Marshal(results)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// signalContext is cancelled on SIGINT so a stage stops between tables.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if lambdaMode { // if we should handle lambda execution...
			lambda.Start(handleLambdaEvent)
		} else {
			if err := execute12FactorMode(context.Background()); err != nil {
				// execute12FactorMode logs the error.
				os.Exit(1)
			}
		}
	} else { // else we're using CLI args and flags via Cobra...
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}

func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, `Totepipe
  Version:	%v
  Build date:	%v
`, version, buildDate)
}

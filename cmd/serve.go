package cmd

import (
	"net"

	"github.com/fscifa/totepipe/actions"
	"github.com/fscifa/totepipe/config"
	"github.com/spf13/cobra"
)

var serveAddr net.IP

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service that runs stages on request",
	Long: `Start a web service that runs stages on request:

  POST /stages/{extract|transform|load|run}   optional body {"tables": ["staff"]}
  GET  /health
  POST /stop`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		env, err := newEnv(cfg)
		if err != nil {
			return err
		}
		return actions.RunWebServer(&actions.WebServerConfig{
			Env:    env,
			Scheme: "http",
			Addr:   serveAddr,
			Port:   cfg.Port,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().IPVarP(&serveAddr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addFlag(serveCmd.Flags(), &flags.port, config.KeyPort)
}

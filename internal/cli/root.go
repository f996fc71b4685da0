package cli

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pablasso/flightpath/internal/config"
	"github.com/pablasso/flightpath/internal/engine"
	"github.com/pablasso/flightpath/internal/version"
)

// env is what every command shares: resolved configuration, output streams
// and the test seams.
type env struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config

	stdout io.Writer
	stderr io.Writer

	// predictor replaces the API client when set.
	predictor engine.Predictor
	clock     func() time.Time
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&env{
		v:      config.New(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		clock:  time.Now,
	})
}

func newRootCmd(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "flightpath",
		Short:        "Balloon flight path predictions from the Tawhiri API",
		Long:         `Flightpath asks a Tawhiri prediction service where a balloon launched at a given place and time will fly, for one launch or an hourly sweep of launches.`,
		Version:      version.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.v, e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
	}
	rootCmd.SetOut(e.stdout)
	rootCmd.SetErr(e.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&e.configPath, "config", "", "Config file (default "+config.DefaultFile()+")")
	flags.String("api-url", "", "Prediction API base URL")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for the log file")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address while predicting")
	mustBind(e.v, "api.url", rootCmd, "api-url")
	mustBind(e.v, "log.level", rootCmd, "log-level")
	mustBind(e.v, "log.dir", rootCmd, "log-dir")
	mustBind(e.v, "metrics.addr", rootCmd, "metrics-addr")

	rootCmd.AddCommand(newPredictCmd(e))
	rootCmd.AddCommand(newVersionCmd(e))
	return rootCmd
}

func mustBind(v *viper.Viper, key string, cmd *cobra.Command, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

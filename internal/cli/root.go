package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stigmer/overseer/internal/config"
	"github.com/stigmer/overseer/internal/logger"
	"github.com/stigmer/overseer/pkg/execshell"
)

const version = "0.3.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "overseer",
	Short: "Overseer - host configuration oversight toolkit",
	Long: `Overseer drives a Puppet-compatible configuration agent, serves host
grains, supervises proxy processes through beacons and streams the
resulting events.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.overseer/overseer.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// runtime bundles the pieces every command needs.
type runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	runner *execshell.LocalRunner
}

func newRuntime() (*runtime, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, err
	}

	logCfg := logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Agent.Timeout) * time.Second
	return &runtime{
		cfg:    cfg,
		log:    log,
		runner: execshell.NewLocalRunner(log.Logger(), timeout),
	}, nil
}

func (r *runtime) close() {
	_ = r.log.Close()
}

// printJSON renders command results the way the rest of the tooling
// expects to consume them.
func printJSON(value any) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// parseOptions turns repeated key=value flags into an options map.
func parseOptions(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q, expected key=value", pair)
		}
		options[key] = value
	}
	return options, nil
}

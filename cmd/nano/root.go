// Command nano renders nano templates from the command line.
//
// Settings come from, in order of precedence: flags, NANO_* environment
// variables (NANO_BASE_PATH, NANO_CHARSET, ...) and a .nano.yml config file in
// the working directory or the file named by --config.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dangdungcntt/go-nano"
	"github.com/dangdungcntt/go-nano/varsfile"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nano",
	Short: "Render nano templates",
	Long: `nano renders text templates built from directive queries such as
{{ o "page.title" }}, with block inheritance and partials.

Examples:
  nano render page.html --vars vars.yaml
  nano check --base-path views
  nano watch page.html --vars vars.yaml --out page.out.html`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .nano.yml)")
	flags.StringP("base-path", "b", ".", "directory holding the templates")
	flags.String("prefix", "", "directory tried when a template name does not resolve")
	flags.String("charset", "UTF-8", "charset of variable values")
	flags.StringP("log-level", "l", "warn", "log level (debug, info, warn, error)")

	for key, flag := range map[string]string{
		"base_path": "base-path",
		"prefix":    "prefix",
		"charset":   "charset",
		"log_level": "log-level",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".nano")
	}

	viper.SetEnvPrefix("NANO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", viper.GetString("log_level"), err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func newEngine(cmd *cobra.Command) (*nano.Engine, error) {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return nano.NewEngine(viper.GetString("base_path"),
		nano.WithLogger(logger),
		nano.WithCharset(viper.GetString("charset")),
		nano.WithPrefix(viper.GetString("prefix")),
	)
}

// loadVars reads the variables file configured by --vars or the vars key.
func loadVars() (map[string]any, error) {
	path := viper.GetString("vars")
	if path == "" {
		return map[string]any{}, nil
	}
	vars, err := varsfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load variables: %w", err)
	}
	return vars, nil
}

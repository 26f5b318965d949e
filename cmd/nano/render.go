package main

import (
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dangdungcntt/go-nano"
)

var renderCmd = &cobra.Command{
	Use:   "render <template>",
	Short: "Render a template to stdout or a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var renderOut string

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("vars", "v", "", "variables file (.yaml, .yml, .json, .hcl)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the output to this file instead of stdout")
	_ = viper.BindPFlag("vars", renderCmd.Flags().Lookup("vars"))
}

func runRender(cmd *cobra.Command, args []string) error {
	e, err := newEngine(cmd)
	if err != nil {
		return err
	}
	return renderTo(cmd, e, args[0], renderOut)
}

// renderTo renders name and writes it to out, or stdout when out is empty. The
// file is replaced atomically so readers never see a partial render.
func renderTo(cmd *cobra.Command, e *nano.Engine, name, out string) error {
	vars, err := loadVars()
	if err != nil {
		return err
	}
	text, err := e.RenderString(name, vars)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	if err := atomic.WriteFile(out, strings.NewReader(text)); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch <template>",
	Short: "Render a template again whenever a template file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var watchOut string

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("vars", "v", "", "variables file (.yaml, .yml, .json, .hcl)")
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "output file (required)")
	_ = watchCmd.MarkFlagRequired("out")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// the vars flag is shared with render through the same viper key
	_ = viper.BindPFlag("vars", cmd.Flags().Lookup("vars"))

	e, err := newEngine(cmd)
	if err != nil {
		return err
	}
	if err := renderTo(cmd, e, args[0], watchOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rendered %s to %s, watching for changes\n", args[0], watchOut)

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return e.Watch(ctx, func(name string) {
		if err := renderTo(cmd, e, args[0], watchOut); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s changed, render failed: %v\n", name, err)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s changed, rendered %s\n", name, watchOut)
	})
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

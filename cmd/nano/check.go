package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse every template under the base path",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	e, err := newEngine(cmd)
	if err != nil {
		return err
	}
	if err := e.Load(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "templates in %s OK\n", viper.GetString("base_path"))
	return nil
}

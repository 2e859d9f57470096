package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-session-client/internal/config"
)

type rootFlags struct {
	configFile string
	quiet      bool
}

// newRootCmd returns the command tree and a func releasing whatever the
// executed command opened.
func newRootCmd() (*cobra.Command, func()) {
	var flags rootFlags
	var a *app

	root := &cobra.Command{
		Use:           "llmctl",
		Short:         "Command line client for the LLM platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configFile)
			if err != nil {
				return err
			}
			if !flags.quiet {
				printBanner(cmd.ErrOrStderr(), cfg.GetAppName())
			}
			a, err = newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			return err
		},
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "do not print the banner")

	get := func() *app { return a }
	root.AddCommand(
		newLoginCmd(get),
		newLogoutCmd(get),
		newWhoamiCmd(get),
		newRefreshCmd(get),
		newVerifyCmd(get),
		newPasswordCmd(get),
		newAPITokenCmd(get),
		newTaskCmd(get),
		newQueryCmd(get),
		newSubscribeCmd(get),
		newMediaCmd(get),
	)
	return root, func() {
		if a != nil {
			a.Close()
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file argument, "-" meaning stdin.
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no such file: %s", name)
	}
	return data, err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shahar-caura/supportintent/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(newCLI()).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration problems to 2 and everything else to 1.
func exitCode(err error) int {
	if errors.Is(err, config.ErrConfig) {
		return 2
	}
	return 1
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "intent",
		Short: "Classify customer support messages into intents",
		Long: `intent assigns a primary and secondary intent to customer support messages
using a hosted language model, retrying failed calls and falling back to
keyword rules when the model cannot answer.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default intent.yaml if present)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "override log.format (text, json, tint)")

	root.AddCommand(
		newClassifyCmd(c),
		newBatchCmd(c),
		newServeCmd(c),
		newInitCmd(),
		newTaxonomyCmd(),
		newCompletionCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the intent version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "intent %s\n", version)
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shahar-caura/supportintent/internal/intent"
	"github.com/spf13/cobra"
)

func newClassifyCmd(c *cli) *cobra.Command {
	var (
		history    string
		retries    int
		noFallback bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "classify <message...|->",
		Short: "Classify a single message",
		Long: `Classify a single customer message. Pass "-" to read the message from stdin.

Examples:
  intent classify "Hi, where is my order?"
  intent classify --history "Agent: Please share your order ID" "12345"
  echo "mujhe hindi mein baat karni hai" | intent classify -o json -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutputFormat(output); err != nil {
				return err
			}

			message := strings.Join(args, " ")
			if message == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				message = strings.TrimSpace(string(data))
			}

			cfg, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("retries") {
				cfg.Classifier.MaxRetries = retries
			}
			if noFallback {
				cfg.Classifier.FallbackEnabled = false
			}

			clf, err := c.classifier(cfg, logger, nil)
			if err != nil {
				return err
			}

			res, err := clf.ClassifyWith(cmd.Context(), intent.Request{Message: message, History: history},
				cfg.Classifier.MaxRetries, cfg.Classifier.FallbackEnabled)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, output)
		},
	}

	cmd.Flags().StringVar(&history, "history", "", "prior conversation, oldest first")
	cmd.Flags().IntVar(&retries, "retries", 0, "override classifier.max_retries")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "fail instead of using keyword rules")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions([]string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func checkOutputFormat(format string) error {
	switch format {
	case "text", "json", "":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q; supported: text, json", format)
	}
}

func printResult(w io.Writer, res intent.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "text", "":
		fmt.Fprintf(w, "Primary:    %s\n", res.Primary)
		fmt.Fprintf(w, "Secondary:  %s\n", res.Secondary)
		if res.Confidence != nil {
			fmt.Fprintf(w, "Confidence: %.2f\n", *res.Confidence)
		}
		fmt.Fprintf(w, "Source:     %s (%d attempt(s))\n", res.Source, res.Attempts)
		if res.Reasoning != "" {
			fmt.Fprintf(w, "Reasoning:  %s\n", res.Reasoning)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q; supported: text, json", format)
	}
}

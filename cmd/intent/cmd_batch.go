package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shahar-caura/supportintent/internal/intent"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// batchItem is one line of batch output.
type batchItem struct {
	Index   int           `json:"index"`
	Message string        `json:"message"`
	Result  intent.Result `json:"result"`
}

func newBatchCmd(c *cli) *cobra.Command {
	var (
		sequential bool
		workers    int
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "batch <file|->",
		Short: "Classify every message in a YAML or JSON file",
		Long: `Classify a list of messages. The input is YAML or JSON, either a list of
{message, history} objects or a document with a "requests" list:

  - message: "Hi, where is my order?"
  - message: "12345"
    history: "Agent: Please share your order ID"

Results are written as a JSON array in input order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading batch input: %w", err)
			}

			reqs, err := decodeBatch(data)
			if err != nil {
				return err
			}

			cfg, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			clf, err := c.classifier(cfg, logger, nil)
			if err != nil {
				return err
			}

			opts := intent.BatchOptions{Parallel: cfg.Batch.Parallel && !sequential, MaxWorkers: cfg.Batch.MaxWorkers}
			if workers > 0 {
				opts.MaxWorkers = workers
			}

			results, batchErr := clf.ClassifyBatch(cmd.Context(), reqs, opts)
			// The alert still goes out when the batch was interrupted.
			_, _ = wireAlert(cfg, "intent batch", logger).Check(context.WithoutCancel(cmd.Context()), results)

			items := make([]batchItem, len(results))
			for i, res := range results {
				items[i] = batchItem{Index: i, Message: reqs[i].Message, Result: res}
			}

			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating output: %w", err)
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(items); err != nil {
				return fmt.Errorf("writing results: %w", err)
			}
			return batchErr
		},
	}

	cmd.Flags().BoolVar(&sequential, "sequential", false, "classify one message at a time")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "override batch.max_workers")
	cmd.Flags().StringVarP(&outPath, "out", "O", "", "write results to a file instead of stdout")

	return cmd
}

// decodeBatch accepts a bare list of requests or a {requests: [...]} document.
func decodeBatch(data []byte) ([]intent.Request, error) {
	var list []intent.Request
	listErr := yaml.Unmarshal(data, &list)
	if listErr == nil {
		return list, nil
	}

	var doc struct {
		Requests []intent.Request `yaml:"requests"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing batch input: %w", errors.Join(listErr, err))
	}
	if doc.Requests == nil {
		return nil, errors.New("parsing batch input: expected a list of requests or a \"requests\" key")
	}
	return doc.Requests, nil
}

package main

import (
	"fmt"

	"github.com/shahar-caura/supportintent/internal/taxonomy"
	"github.com/spf13/cobra"
)

func newTaxonomyCmd() *cobra.Command {
	var (
		path   string
		raw    bool
		prompt bool
	)

	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Show the intent taxonomy",
		Long: `Show the primary and secondary intents the classifier can assign.

--yaml prints the embedded taxonomy document, a starting point for a custom
taxonomy.path. --prompt prints the instructions sent to the model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if raw {
				if path != "" {
					return fmt.Errorf("--yaml prints the embedded taxonomy and cannot be combined with --file")
				}
				_, err := out.Write(taxonomy.DefaultYAML())
				return err
			}

			tax, err := taxonomy.Load(path)
			if err != nil {
				return err
			}

			if prompt {
				fmt.Fprintln(out, tax.Instructions())
				return nil
			}

			for _, c := range tax.Categories {
				fmt.Fprintln(out, c.Name)
				for _, in := range c.Intents {
					fmt.Fprintf(out, "  %-36s %s\n", in.Name, in.Description)
				}
			}
			fmt.Fprintf(out, "\nDefault: %s / %s\n", tax.Default.Primary, tax.Default.Secondary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "taxonomy file (default: embedded)")
	cmd.Flags().BoolVar(&raw, "yaml", false, "print the embedded taxonomy YAML")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "print the model instructions")
	cmd.MarkFlagsMutuallyExclusive("yaml", "prompt")

	return cmd
}

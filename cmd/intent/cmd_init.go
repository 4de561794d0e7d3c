package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/shahar-caura/supportintent/internal/config"
	"github.com/shahar-caura/supportintent/internal/taxonomy"
	"github.com/spf13/cobra"
)

type initData struct {
	Provider     string
	Model        string
	KeyEnv       string
	MaxRetries   int
	Fallback     bool
	Parallel     bool
	Workers      int
	TaxonomyPath string
}

func newInitCmd() *cobra.Command {
	var (
		dir          string
		force        bool
		interactive  bool
		withTaxonomy bool
		data         = initData{MaxRetries: 2, Fallback: true, Parallel: true, Workers: 4}
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter intent.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := filepath.Join(dir, config.DefaultPath)
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", configPath)
			}

			if interactive {
				if err := promptInit(cmd.InOrStdin(), cmd.OutOrStdout(), &data); err != nil {
					return err
				}
			}
			data.Provider = strings.ToLower(strings.TrimSpace(data.Provider))
			switch data.Provider {
			case config.ProviderAnthropic, config.ProviderGemini, config.ProviderClaudeCLI:
			default:
				return fmt.Errorf("unknown provider %q; supported: %s, %s, %s",
					data.Provider, config.ProviderAnthropic, config.ProviderGemini, config.ProviderClaudeCLI)
			}
			data.KeyEnv = config.APIKeyEnv(data.Provider)

			if withTaxonomy {
				data.TaxonomyPath = "taxonomy.yaml"
				taxPath := filepath.Join(dir, data.TaxonomyPath)
				if _, err := os.Stat(taxPath); err == nil && !force {
					return fmt.Errorf("%s already exists; use --force to overwrite", taxPath)
				}
				if err := os.WriteFile(taxPath, taxonomy.DefaultYAML(), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", taxPath, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", taxPath)
			}

			tmpl, err := template.New("intent.yaml").Parse(intentYAMLTemplate)
			if err != nil {
				return fmt.Errorf("parsing template: %w", err)
			}
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("rendering template: %w", err)
			}
			if err := os.WriteFile(configPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", configPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)

			if data.KeyEnv != "" && os.Getenv(data.KeyEnv) == "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nWarning: %s is not set. Export it or add it to %s before classifying.\n",
					data.KeyEnv, config.ProjectEnvFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write into")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for each setting")
	cmd.Flags().BoolVar(&withTaxonomy, "with-taxonomy", false, "also write the default taxonomy.yaml for editing")
	cmd.Flags().StringVar(&data.Provider, "provider", config.ProviderAnthropic, "model provider (anthropic, gemini, claude-cli)")
	cmd.Flags().StringVar(&data.Model, "model", "", "model name (provider default when empty)")
	_ = cmd.RegisterFlagCompletionFunc("provider", cobra.FixedCompletions(
		[]string{config.ProviderAnthropic, config.ProviderGemini, config.ProviderClaudeCLI}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// promptInit asks for each setting, keeping the current value on empty input.
func promptInit(in io.Reader, out io.Writer, data *initData) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "=== Provider ===")
	data.Provider = promptString(scanner, out, "Provider (anthropic/gemini/claude-cli)", data.Provider)
	data.Model = promptString(scanner, out, "Model (empty for provider default)", data.Model)

	fmt.Fprintln(out, "\n=== Classifier ===")
	retries, err := strconv.Atoi(promptString(scanner, out, "Max retries", strconv.Itoa(data.MaxRetries)))
	if err != nil || retries < 0 {
		return fmt.Errorf("max retries must be a non-negative integer")
	}
	data.MaxRetries = retries
	data.Fallback = promptYesNo(scanner, out, "Fall back to keyword rules on failure?", data.Fallback)

	fmt.Fprintln(out, "\n=== Batch ===")
	data.Parallel = promptYesNo(scanner, out, "Classify batches in parallel?", data.Parallel)
	workers, err := strconv.Atoi(promptString(scanner, out, "Max workers", strconv.Itoa(data.Workers)))
	if err != nil || workers <= 0 {
		return fmt.Errorf("max workers must be a positive integer")
	}
	data.Workers = workers
	fmt.Fprintln(out)

	return scanner.Err()
}

func promptString(scanner *bufio.Scanner, out io.Writer, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	scanner.Scan()
	input := strings.TrimSpace(scanner.Text())
	if input == "" {
		return defaultVal
	}
	return input
}

func promptYesNo(scanner *bufio.Scanner, out io.Writer, label string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	fmt.Fprintf(out, "%s %s: ", label, hint)
	scanner.Scan()
	input := strings.TrimSpace(strings.ToLower(scanner.Text()))
	if input == "" {
		return defaultYes
	}
	return input == "y" || input == "yes"
}

const intentYAMLTemplate = `# intent configuration
# Any key can be overridden from the environment as INTENT_<SECTION>__<KEY>,
# e.g. INTENT_CLASSIFIER__MAX_RETRIES=3.

provider:
  name: {{.Provider}}
{{- if .Model}}
  model: {{.Model}}
{{- else}}
  # model: provider default
{{- end}}
{{- if .KeyEnv}}
  # api_key: read from {{.KeyEnv}} when empty
{{- end}}
  timeout: 30s
  max_tokens: 1000
  temperature: 0.1

classifier:
  max_retries: {{.MaxRetries}}
  fallback_enabled: {{.Fallback}}
  backoff:
    initial: 0s
    max: 5s
    multiplier: 2

batch:
  parallel: {{.Parallel}}
  max_workers: {{.Workers}}

taxonomy:
  path: "{{.TaxonomyPath}}"

server:
  addr: ":8080"
  read_timeout: 10s
  write_timeout: 120s

log:
  level: info
  format: text
`

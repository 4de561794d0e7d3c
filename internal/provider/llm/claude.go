package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrNoClaude indicates the claude CLI is not installed.
var ErrNoClaude = errors.New("claude CLI not found in PATH")

// ClaudeCLI implements provider.Generator by shelling out to `claude -p`.
// The CLI does not expose token or temperature controls, so those arguments
// are ignored. Each call runs its own process.
type ClaudeCLI struct {
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger

	// commandContext and lookPath are overridable for testing.
	commandContext func(ctx context.Context, name string, args ...string) *exec.Cmd
	lookPath       func(file string) (string, error)
}

// NewClaudeCLI creates a generator that runs the local claude CLI.
func NewClaudeCLI(model string, timeout time.Duration, logger *slog.Logger) *ClaudeCLI {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ClaudeCLI{
		Model:          model,
		Timeout:        timeout,
		Logger:         logger,
		commandContext: exec.CommandContext,
		lookPath:       exec.LookPath,
	}
}

func (c *ClaudeCLI) Generate(ctx context.Context, prompt string, _ int, _ float64) (string, error) {
	if _, err := c.lookPath("claude"); err != nil {
		return "", ErrNoClaude
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := []string{"-p", prompt, "--output-format", "json"}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}

	cmd := c.commandContext(ctx, "claude", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("claude: timed out after %s", c.Timeout)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("claude: %w", ctx.Err())
		}
		return "", fmt.Errorf("claude: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	c.Logger.Debug("claude response", "size", stdout.Len())
	return extractResultField(stdout.String()), nil
}

// extractResultField unwraps claude's {"result":"..."} envelope.
// Falls back to the raw string if parsing fails.
func extractResultField(raw string) string {
	var envelope struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return raw
	}
	if envelope.Result == "" {
		return raw
	}
	return envelope.Result
}

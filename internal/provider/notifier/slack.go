package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Slack posts alerts to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
}

// NewSlack returns a Slack notifier for the given webhook URL.
func NewSlack(webhookURL string, timeout time.Duration) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

// Notify sends a plain text message.
func (s *Slack) Notify(ctx context.Context, message string) error {
	return s.post(ctx, slackMessage{Text: message})
}

// NotifyDegradation sends d with its counts as attachment fields. A batch
// that fell back entirely is colored danger, anything less warning.
func (s *Slack) NotifyDegradation(ctx context.Context, d Degradation) error {
	color := "warning"
	if d.Fallbacks == d.Total {
		color = "danger"
	}
	return s.post(ctx, slackMessage{
		Text: d.String(),
		Attachments: []slackAttachment{{
			Color: color,
			Fields: []slackField{
				{Title: "Source", Value: d.Source, Short: true},
				{Title: "Fallback share", Value: fmt.Sprintf("%.0f%%", d.Share()*100), Short: true},
				{Title: "Fallbacks", Value: strconv.Itoa(d.Fallbacks), Short: true},
				{Title: "Classified", Value: strconv.Itoa(d.Total), Short: true},
			},
		}},
	})
}

func (s *Slack) post(ctx context.Context, msg slackMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("slack: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("slack: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		return fmt.Errorf("slack: webhook rejected alert (status %d): %s", resp.StatusCode, body)
	}
	return nil
}

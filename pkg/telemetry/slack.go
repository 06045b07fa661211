package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/utils"
	"golang.org/x/time/rate"
)

// SlackClient posts alerts to a Slack incoming webhook. Sends are rate
// limited to one per second with a small burst.
type SlackClient struct {
	webhookURL  string
	serviceName string
	channel     string
	logger      logging.Logger
	enabled     bool
	client      *http.Client
	limiter     *rate.Limiter
}

// SlackConfig holds Slack configuration.
type SlackConfig struct {
	WebhookURL  string
	ServiceName string
	Channel     string
	Enabled     bool
}

// SlackMessage represents a Slack webhook message.
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack message attachment.
type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

// SlackField represents a field in a Slack attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// maxFieldLength keeps long document errors from blowing up an alert.
const maxFieldLength = 500

// NewSlackClient creates a new Slack client.
func NewSlackClient(cfg SlackConfig, logger logging.Logger) *SlackClient {
	if !cfg.Enabled || cfg.WebhookURL == "" {
		logger.Info("Slack notifications disabled or webhook URL not provided")
		return &SlackClient{
			enabled: false,
			logger:  logger,
		}
	}

	return &SlackClient{
		webhookURL:  cfg.WebhookURL,
		serviceName: cfg.ServiceName,
		channel:     cfg.Channel,
		logger:      logger,
		enabled:     true,
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

// SendMessage sends a message to Slack, waiting for the rate limiter.
func (s *SlackClient) SendMessage(ctx context.Context, msg SlackMessage) error {
	if !s.enabled {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("slack rate limit: %w", err)
	}

	if msg.Channel == "" {
		msg.Channel = "#alerts"
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		// A rejected payload or revoked webhook will not recover on retry.
		return utils.Permanent(fmt.Errorf("Slack API returned status %d", resp.StatusCode))
	default:
		return fmt.Errorf("Slack API returned status %d", resp.StatusCode)
	}
}

// SendSlowRequestAlert sends a slow request alert to Slack.
func (s *SlackClient) SendSlowRequestAlert(ctx context.Context, path string, durationMs int64, traceID, requestID string) error {
	if !s.enabled {
		return nil
	}

	return s.SendMessage(ctx, s.alert("warning",
		fmt.Sprintf("Slow request in %s", s.serviceName),
		[]SlackField{
			{Title: "Path", Value: path, Short: true},
			{Title: "Duration", Value: fmt.Sprintf("%d ms", durationMs), Short: true},
			{Title: "Trace ID", Value: traceID, Short: true},
			{Title: "Request ID", Value: requestID, Short: true},
		},
	))
}

// SendErrorAlert sends an error alert to Slack.
func (s *SlackClient) SendErrorAlert(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) error {
	if !s.enabled {
		return nil
	}

	return s.SendMessage(ctx, s.alert("danger",
		fmt.Sprintf("Error in %s", s.serviceName),
		[]SlackField{
			{Title: "Path", Value: path, Short: true},
			{Title: "Status Code", Value: fmt.Sprintf("%d", statusCode), Short: true},
			{Title: "Error", Value: truncate(errorMsg), Short: false},
			{Title: "Trace ID", Value: traceID, Short: true},
			{Title: "Request ID", Value: requestID, Short: true},
		},
	))
}

// SendJobFailedAlert reports a batch job that ended in error.
func (s *SlackClient) SendJobFailedAlert(ctx context.Context, jobID, tool, owner, errorMsg string) error {
	if !s.enabled {
		return nil
	}

	return s.RetrySendMessage(ctx, s.alert("danger",
		fmt.Sprintf("Batch job failed in %s", s.serviceName),
		[]SlackField{
			{Title: "Job", Value: jobID, Short: true},
			{Title: "Tool", Value: tool, Short: true},
			{Title: "Owner", Value: owner, Short: true},
			{Title: "Error", Value: truncate(errorMsg), Short: false},
		},
	), 3)
}

func (s *SlackClient) alert(color, title string, fields []SlackField) SlackMessage {
	return SlackMessage{
		Channel: s.channel,
		Text:    title,
		Attachments: []SlackAttachment{{
			Color:     color,
			Title:     title,
			Fields:    append([]SlackField{{Title: "Service", Value: s.serviceName, Short: true}}, fields...),
			Timestamp: time.Now().Unix(),
		}},
	}
}

// RetrySendMessage sends a message with retry logic.
func (s *SlackClient) RetrySendMessage(ctx context.Context, msg SlackMessage, maxAttempts int) error {
	if !s.enabled {
		return nil
	}

	config := utils.RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}

	return utils.Retry(ctx, config, func() error {
		return s.SendMessage(ctx, msg)
	})
}

func truncate(s string) string {
	if r := []rune(s); len(r) > maxFieldLength {
		return string(r[:maxFieldLength]) + "..."
	}
	return s
}

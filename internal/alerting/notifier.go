// Package alerting pushes operator-facing notifications for two conditions
// this module observes but cannot act on itself (spec §4.11): a feed's
// quote-to-quote deviation crossing a configured threshold, and a burst of
// SignatureInvalid events for the same oracle.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"oraclewatcher/internal/submit"
)

// Notification carries a deviation alert's context.
type Notification struct {
	Bucket        time.Time
	FeedID        [32]byte
	PreviousQuote submit.Quote
	CurrentQuote  submit.Quote
	DeviationPct  float64
	ThresholdPct  float64
	Direction     string
	Channels      []string
	AdditionalMsg string
}

// SignatureFailureNotification carries a signature-failure-burst alert's
// context: spec §4.4 makes SignatureInvalid a first-class observable, and an
// operator watching a queue needs to know when one oracle is consistently
// failing recovery.
type SignatureFailureNotification struct {
	Bucket   time.Time
	OracleID [32]byte
	QueueID  [32]byte
	Count    int
	Window   time.Duration
	Channels []string
}

// Notifier defines alert delivery.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
	NotifySignatureFailures(ctx context.Context, note SignatureFailureNotification) error
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram-backed Notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify sends a deviation alert.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	if err := n.send(ctx, renderDeviationMessage(note)); err != nil {
		return err
	}
	n.logger.Info().Time("bucket", note.Bucket).
		Str("direction", note.Direction).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("deviation alert sent")
	return nil
}

// NotifySignatureFailures sends a signature-failure-burst alert.
func (n *TelegramNotifier) NotifySignatureFailures(ctx context.Context, note SignatureFailureNotification) error {
	if err := n.send(ctx, renderSignatureFailureMessage(note)); err != nil {
		return err
	}
	n.logger.Info().Time("bucket", note.Bucket).
		Int("count", note.Count).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("signature failure alert sent")
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram response reported ok=false")
		}
	}
	return nil
}

func renderDeviationMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Oracle Deviation Alert]\n")
	builder.WriteString(fmt.Sprintf("Bucket: %s UTC\n", note.Bucket.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Feed: %x\n", note.FeedID))
	builder.WriteString(fmt.Sprintf("Previous: %s (slot %d)\n", note.PreviousQuote.Value.String(), note.PreviousQuote.Slot))
	builder.WriteString(fmt.Sprintf("Current: %s (slot %d)\n", note.CurrentQuote.Value.String(), note.CurrentQuote.Slot))
	builder.WriteString(fmt.Sprintf("Deviation: %.3f%% (threshold %.3f%%)\n", note.DeviationPct, note.ThresholdPct))
	builder.WriteString(fmt.Sprintf("Direction: %s\n", note.Direction))
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

func renderSignatureFailureMessage(note SignatureFailureNotification) string {
	builder := strings.Builder{}
	builder.WriteString("[Oracle Signature Failure Alert]\n")
	builder.WriteString(fmt.Sprintf("Bucket: %s UTC\n", note.Bucket.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Oracle: %x\n", note.OracleID))
	builder.WriteString(fmt.Sprintf("Queue: %x\n", note.QueueID))
	builder.WriteString(fmt.Sprintf("Failures: %d in %s\n", note.Count, note.Window))
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)

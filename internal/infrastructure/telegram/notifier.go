package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"ContentIngestor/internal/domain"
	"ContentIngestor/internal/ports"
)

const (
	defaultAPIURL = "https://api.telegram.org"
	// Telegram rejects messages longer than 4096 characters.
	maxMessageRunes = 4000
	maxFailureLines = 10
)

// ErrMisconfigured is returned when the bot token or chat id is missing.
var ErrMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier sends job reports to a Telegram chat via bot API.
type Notifier struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiURL
// targets api.telegram.org.
func NewNotifier(apiURL, botToken, chatID string) *Notifier {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Notifier{
		apiURL:   strings.TrimSuffix(apiURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// NotifyJob posts a plain-text summary of report.
func (n *Notifier) NotifyJob(ctx context.Context, report domain.JobReport) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return ErrMisconfigured
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", FormatReport(report))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatReport renders a job report as a short chat message.
func FormatReport(report domain.JobReport) string {
	var b strings.Builder
	totals := report.Totals()

	fmt.Fprintf(&b, "%s #%d %s\n", report.Identity.JobName, report.Identity.RunID, report.Status)
	fmt.Fprintf(&b, "base date: %s\n", report.Identity.BaseDate)
	fmt.Fprintf(&b, "read %d, skipped %d, written %d, failed %d in %s\n",
		totals.Read, totals.Skipped, totals.Written, totals.Failed, report.Elapsed.Round(time.Millisecond))

	for _, e := range report.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}

	if len(report.FailureMessages) > 0 {
		b.WriteString("item failures:\n")
		for i, msg := range report.FailureMessages {
			if i == maxFailureLines {
				fmt.Fprintf(&b, "... and %d more\n", len(report.FailureMessages)-maxFailureLines)
				break
			}
			fmt.Fprintf(&b, "- %s\n", msg)
		}
	}

	text := strings.TrimRight(b.String(), "\n")
	if runes := []rune(text); len(runes) > maxMessageRunes {
		text = string(runes[:maxMessageRunes]) + "..."
	}
	return text
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/donaldgifford/print-price-matrix/internal/metrics"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

const (
	colorGreen  = 0x2ECC71 // success rate 95+
	colorYellow = 0xF1C40F // success rate 80-94
	colorOrange = 0xE67E22 // success rate below 80
	colorRed    = 0xE74C3C // aborted
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// NotifyRunComplete sends the run summary as a Discord embed.
func (d *DiscordNotifier) NotifyRunComplete(ctx context.Context, summary *domain.ExtractionSummary) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	}()

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{buildEmbed(summary)},
	}
	return d.post(ctx, payload)
}

func buildEmbed(s *domain.ExtractionSummary) discordEmbed {
	title := fmt.Sprintf("Price matrix complete: %s", s.ProductName)
	if s.State == domain.JobAborted {
		title = fmt.Sprintf("Price matrix aborted: %s", s.ProductName)
	}

	embed := discordEmbed{
		Title: title,
		Color: summaryColor(s),
		Fields: []discordEmbedField{
			{Name: "Combinations", Value: fmt.Sprintf("%d", s.TotalCombinations), Inline: true},
			{Name: "Extracted", Value: fmt.Sprintf("%d", s.TotalExtracted), Inline: true},
			{Name: "Errors", Value: fmt.Sprintf("%d", s.ErrorCount), Inline: true},
			{Name: "Suspicious", Value: fmt.Sprintf("%d", s.SuspiciousCount), Inline: true},
			{Name: "Success Rate", Value: fmt.Sprintf("%.1f%%", s.SuccessRate), Inline: true},
			{Name: "Product ID", Value: s.ProductID, Inline: true},
		},
	}

	if s.CompletedAt != nil {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   "Duration",
			Value:  s.CompletedAt.Sub(s.StartedAt).Round(time.Second).String(),
			Inline: true,
		})
		embed.Timestamp = s.CompletedAt.UTC().Format(time.RFC3339)
	}
	if s.Error != "" {
		embed.Description = s.Error
	}
	if s.RawPath != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Raw CSV", Value: s.RawPath})
	}
	if s.PivotPath != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Formatted CSV", Value: s.PivotPath})
	}

	return embed
}

func summaryColor(s *domain.ExtractionSummary) int {
	switch {
	case s.State == domain.JobAborted:
		return colorRed
	case s.SuccessRate >= 95:
		return colorGreen
	case s.SuccessRate >= 80:
		return colorYellow
	default:
		return colorOrange
	}
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}

package narrate

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/PrecinctPulse/PP-Backend/internal/insights"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
)

const defaultModel = "claude-sonnet-4-5-20250929"

const systemPrompt = "You are a campaign data analyst. You receive precinct-level " +
	"insights generated from demographic and electoral data and write a short, " +
	"plain-language strategic summary for a field director. Lead with the single " +
	"most actionable finding. Do not invent numbers beyond the evidence given."

// Narrator turns generated insights into a short narrative summary via the
// Anthropic API. It is a collaborator of the insights engine, never a
// dependency of it.
type Narrator struct {
	apiKey string
	model  string
}

func NewFromEnv() Narrator {
	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = defaultModel
	}
	return Narrator{
		apiKey: os.Getenv("ANTHROPIC_API_KEY"),
		model:  model,
	}
}

func (n Narrator) Enabled() bool {
	return n.apiKey != ""
}

// BuildPrompt assembles the user prompt from chat-formatted insights. Split
// out from Summarize so it is testable without network access.
func BuildPrompt(list []insights.Insight) string {
	var b strings.Builder
	b.WriteString("Current insights for the county, highest priority first:\n\n")
	for _, ins := range list {
		b.WriteString(insights.FormatForChat(ins))
		b.WriteString("\n")
	}
	b.WriteString("Write a strategic summary in at most three short paragraphs.")
	return b.String()
}

// Summarize asks the model for a narrative over the supplied insights,
// retrying transient failures with exponential backoff.
func (n Narrator) Summarize(ctx context.Context, list []insights.Insight) (string, error) {
	if !n.Enabled() {
		return "", fmt.Errorf("narration disabled: ANTHROPIC_API_KEY not set")
	}
	if len(list) == 0 {
		return "", fmt.Errorf("no insights to narrate")
	}

	client := anthropic.NewClient(option.WithAPIKey(n.apiKey))
	userPrompt := BuildPrompt(list)

	var text string
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		message, err := client.Messages.New(callCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(n.model),
			MaxTokens: 1024,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			log.Printf("[narrate] anthropic error: %v", err)
			return err
		}

		for _, block := range message.Content {
			if block.Type == "text" {
				text = block.Text
				return nil
			}
		}
		return backoff.Permanent(fmt.Errorf("no text content in response"))
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("narration failed: %w", err)
	}
	return text, nil
}

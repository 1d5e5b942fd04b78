package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	appLog "teamcal/internal/log"
	"teamcal/internal/model"
)

const defaultOracleTimeout = 2 * time.Minute

// AnthropicOracle implements Classifier against the Anthropic Messages API.
type AnthropicOracle struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

func NewAnthropicOracle(apiKey, modelName string, timeout time.Duration) *AnthropicOracle {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	return &AnthropicOracle{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   modelName,
		timeout: timeout,
	}
}

func (o *AnthropicOracle) Classify(ctx context.Context, titles, roster []string, sentinel string) (string, error) {
	systemPrompt, userPrompt := buildPrompts(titles, roster, sentinel)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	appLog.Info("oracle request", "model", o.model, "titles", len(titles), "roster", len(roster))

	message, err := o.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(o.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", &model.NetworkError{Op: "classification oracle", Err: err}
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			appLog.Info("oracle response", "size", len(block.Text), "tokens_in", message.Usage.InputTokens, "tokens_out", message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", &model.OracleResponseError{Reason: "no text content in response"}
}

// buildPrompts assembles the classification request. The oracle sees
// display names and the sentinel tag only; resolving names back to IDs and
// all validation happen in the engine.
func buildPrompts(titles, roster []string, sentinel string) (string, string) {
	systemPrompt := fmt.Sprintf(`You match calendar event titles to the employees they belong to.

For each event title, decide which employee(s) from the roster it refers to.
- Titles are free text: nicknames, first names only, or typos still count.
- If a title names a public or company holiday rather than a person, map it to ["%s"].
- A single title may map to several employees (for example a whole-team event).
- If a title matches no employee and is not a holiday, use an empty list [].

Respond with a single JSON object and nothing else (no markdown):
{"<event title>": ["<employee name>", ...], ...}
Every requested title must appear as a key, spelled exactly as given.`, sentinel)

	var b strings.Builder
	b.WriteString("Employee roster:\n")
	for _, name := range roster {
		b.WriteString("- " + name + "\n")
	}
	b.WriteString("\nEvent titles to classify:\n")
	data, _ := json.Marshal(titles)
	b.Write(data)

	return systemPrompt, b.String()
}

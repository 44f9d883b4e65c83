package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BTreeMap/SupportPipe/internal/genai"
)

// IntentClassifier answers a yes/no question about user text.
type IntentClassifier interface {
	// Matches reports whether text satisfies the intent described by prompt.
	// Any failure counts as no.
	Matches(ctx context.Context, prompt, text string) bool
}

// GenAIClassifier asks the chat model the yes/no question posed by the intent prompt.
type GenAIClassifier struct {
	client genai.ClientInterface
}

// NewGenAIClassifier creates a classifier on top of a chat client.
func NewGenAIClassifier(client genai.ClientInterface) *GenAIClassifier {
	return &GenAIClassifier{client: client}
}

// Matches is true only when the model answers exactly "yes" (case and surrounding
// whitespace ignored).
func (c *GenAIClassifier) Matches(ctx context.Context, prompt, text string) bool {
	answer, err := c.client.GeneratePrompt(ctx, prompt, text)
	if err != nil {
		if genai.IsUnreachable(err) {
			slog.Warn("GenAIClassifier.Matches: model unreachable, treating as no", "error", err)
		} else {
			slog.Error("GenAIClassifier.Matches: model error, treating as no", "error", err)
		}
		return false
	}
	matched := strings.ToLower(strings.TrimSpace(answer)) == "yes"
	slog.Debug("GenAIClassifier.Matches: classified", "answer", answer, "matched", matched)
	return matched
}

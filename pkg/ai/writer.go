package ai

import (
	"context"
	"fmt"
	"time"
)

// NotConfiguredText is returned by a disabled Writer in place of generated
// content. The rest of the application stays usable without an AI backend.
const NotConfiguredText = "The AI service is not configured. " +
	"Please set GEMINI_API_KEY in your .env file."

const systemPrompt = "You are InkWise, a creative writing assistant."

const defaultComposeTimeout = 30 * time.Second

// Writer turns a topic and writing style into generated text. A Writer
// without a generator is permanently disabled for the process lifetime and
// returns NotConfiguredText instead of attempting a call.
type Writer struct {
	gen     TextGenerator
	timeout time.Duration
}

// NewWriter wraps a TextGenerator. A nil generator yields a disabled Writer.
func NewWriter(gen TextGenerator) *Writer {
	return &Writer{gen: gen, timeout: defaultComposeTimeout}
}

// Enabled reports whether a generation backend is configured.
func (w *Writer) Enabled() bool {
	return w.gen != nil
}

// Compose generates text about topic in the given style. When disabled it
// returns NotConfiguredText with a nil error; backend failures are returned
// as errors for the caller to handle.
func (w *Writer) Compose(ctx context.Context, topic, styleID string) (string, error) {
	if w.gen == nil {
		return NotConfiguredText, nil
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.gen.GenerateText(ctx, systemPrompt, buildPrompt(topic, styleID))
}

func buildPrompt(topic, styleID string) string {
	styleDesc := DescribeStyle(styleID)
	return fmt.Sprintf(
		"Write %s about: %s\n\n"+
			"Guidelines:\n"+
			"1. Follow the conventions of %s\n"+
			"2. Be creative, vivid, and engaging\n"+
			"3. Appropriate length for the style\n"+
			"4. No meta-commentary, just the writing itself\n",
		styleDesc, topic, styleDesc,
	)
}

// Package speech wraps the OpenAI-compatible model calls: whisper
// transcription of captured audio and sentiment tagging of the
// resulting text. Plain I/O, no state of its own.
package speech

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var ErrNoClient = errors.New("speech: no api key configured")

// Client calls the transcription and classification models.
type Client struct {
	api   *openai.Client
	model string
}

// New builds a client. An empty key returns a client whose calls fail
// with ErrNoClient, so callers can treat speech as optional.
func New(apiKey, baseURL, model string) *Client {
	if len(apiKey) == 0 {
		return &Client{}
	}

	cfg := openai.DefaultConfig(apiKey)
	if len(baseURL) > 0 {
		cfg.BaseURL = baseURL
	}
	if len(model) == 0 {
		model = openai.Whisper1
	}

	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Enabled reports whether a key was configured.
func (c *Client) Enabled() bool {
	return c.api != nil
}

// Transcribe runs speech-to-text over one audio segment. The filename
// only matters for its extension.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if c.api == nil {
		return "", ErrNoClient
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

const sentimentPrompt = `Classify the sentiment of the following text as exactly one word: positive, negative or neutral.`

// Sentiment tags a transcript as positive, negative or neutral.
func (c *Client) Sentiment(ctx context.Context, text string) (string, error) {
	if c.api == nil {
		return "", ErrNoClient
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     openai.GPT3Dot5Turbo,
		MaxTokens: 4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "neutral", nil
	}

	label := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch label {
	case "positive", "negative", "neutral":
		return label, nil
	}
	return "neutral", nil
}

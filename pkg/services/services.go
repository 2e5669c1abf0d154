package services

// Package services declares the external collaborators of the send
// pipeline. Implementations live in provider subpackages (gemini, openai);
// the core only ever sees these interfaces, so tests substitute stubs.

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/arqnb/studio/pkg/conversation"
)

// LanguageModel sends one user turn plus prior history to a remote model
// and returns the raw response text, which may embed a JSON action
// envelope. When tools are declared, any function-calling round trip is
// resolved inside the provider; the caller only ever sees the final text.
type LanguageModel interface {
	Send(ctx context.Context, instruction string, text string, history []*conversation.Message, attachments []conversation.Attachment, options ...SendOption) (string, error)
}

// ToolParam describes one parameter of a tool declaration.
type ToolParam struct {
	Type        string
	Description string
}

// ToolDeclaration is a provider-neutral function declaration. Each
// provider translates it to its own tool format before the call.
type ToolDeclaration struct {
	Name        string
	Description string
	Params      map[string]ToolParam
	Required    []string
}

// SendConfig carries the optional parts of a model call.
type SendConfig struct {
	Tools []ToolDeclaration
}

type SendOption func(*SendConfig)

// WithTools declares functions the model may call during this turn.
func WithTools(tools ...ToolDeclaration) SendOption {
	return func(c *SendConfig) {
		c.Tools = tools
	}
}

func NewSendConfig(options ...SendOption) *SendConfig {
	ret := &SendConfig{}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Transcriber turns an audio attachment into a transcript. Besides a
// returned error, a transcript carrying the apology prefix ("Desculpe,")
// is treated as failure by the caller.
type Transcriber interface {
	Transcribe(ctx context.Context, attachment conversation.Attachment) (string, error)
}

// ImageGenerator renders an image from a text prompt. A nil result with a
// nil error means the provider answered without an image; callers treat it
// as failure.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*ImageResult, error)
}

// ImageEditor reworks the given attachments according to the prompt.
type ImageEditor interface {
	Edit(ctx context.Context, prompt string, attachments []conversation.Attachment) (*ImageResult, error)
}

// ImageResult is the binary outcome of a generation or editing call.
type ImageResult struct {
	Data     []byte
	MimeType string
}

// DataURL renders the result for inline display.
func (r *ImageResult) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", r.MimeType, base64.StdEncoding.EncodeToString(r.Data))
}

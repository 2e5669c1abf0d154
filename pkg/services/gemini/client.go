package gemini

// Package gemini backs all four external services with Google's Gemini
// API: one multimodal model for chat and transcription, one image model
// for generation and editing.

import (
	"context"
	"encoding/base64"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/services"
)

const (
	defaultChatModel  = "gemini-2.5-flash"
	defaultImageModel = "gemini-2.5-flash-image"

	transcriptionInstruction = "Transcreva este áudio na íntegra em português. Retorne apenas o texto transcrito, sem nenhuma formatação, comentários ou introduções adicionais."
)

type Client struct {
	ai         *genai.Client
	chatModel  string
	imageModel string
}

var (
	_ services.LanguageModel  = (*Client)(nil)
	_ services.Transcriber    = (*Client)(nil)
	_ services.ImageGenerator = (*Client)(nil)
	_ services.ImageEditor    = (*Client)(nil)
)

type Option func(*Client)

func WithChatModel(name string) Option {
	return func(c *Client) {
		c.chatModel = name
	}
}

func WithImageModel(name string) Option {
	return func(c *Client) {
		c.imageModel = name
	}
}

func NewClient(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	ai, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "could not create gemini client")
	}

	ret := &Client{
		ai:         ai,
		chatModel:  defaultChatModel,
		imageModel: defaultImageModel,
	}
	for _, option := range options {
		option(ret)
	}
	return ret, nil
}

func (c *Client) Close() error {
	return c.ai.Close()
}

func (c *Client) Send(
	ctx context.Context,
	instruction string,
	text string,
	history []*conversation.Message,
	attachments []conversation.Attachment,
	options ...services.SendOption,
) (string, error) {
	config := services.NewSendConfig(options...)

	model := c.ai.GenerativeModel(c.chatModel)
	if instruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}
	}
	if len(config.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations(config.Tools)}}
	}

	chat := model.StartChat()
	for _, msg := range history {
		content, err := contentFromMessage(msg)
		if err != nil {
			return "", err
		}
		if len(content.Parts) == 0 {
			continue
		}
		chat.History = append(chat.History, content)
	}

	parts := []genai.Part{}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, genai.Text(text))
	}
	for _, attachment := range attachments {
		blob, err := blobFromAttachment(attachment)
		if err != nil {
			return "", err
		}
		parts = append(parts, blob)
	}
	if len(parts) == 0 {
		return "", errors.New("nothing to send")
	}

	log.Debug().
		Str("model", c.chatModel).
		Int("history_length", len(chat.History)).
		Int("attachments", len(attachments)).
		Msg("sending chat turn to gemini")

	resp, err := chat.SendMessage(ctx, parts...)
	if err != nil {
		return "", errors.Wrap(err, "gemini chat call failed")
	}

	// Function-calling round trip: confirm each call so the model can
	// phrase its final answer. The chat session keeps the model's
	// function-call turn in its history.
	if calls := functionCalls(resp); len(calls) > 0 {
		log.Debug().
			Str("model", c.chatModel).
			Int("function_calls", len(calls)).
			Msg("answering function calls")

		responses := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			responses = append(responses, genai.FunctionResponse{
				Name:     call.Name,
				Response: map[string]any{"success": true},
			})
		}
		resp, err = chat.SendMessage(ctx, responses...)
		if err != nil {
			return "", errors.Wrap(err, "gemini tool follow-up call failed")
		}
	}

	return textFromResponse(resp), nil
}

func (c *Client) Transcribe(ctx context.Context, attachment conversation.Attachment) (string, error) {
	blob, err := blobFromAttachment(attachment)
	if err != nil {
		return "", err
	}

	model := c.ai.GenerativeModel(c.chatModel)
	resp, err := model.GenerateContent(ctx, blob, genai.Text(transcriptionInstruction))
	if err != nil {
		return "", errors.Wrap(err, "gemini transcription call failed")
	}
	return textFromResponse(resp), nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (*services.ImageResult, error) {
	model := c.ai.GenerativeModel(c.imageModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, errors.Wrap(err, "gemini image generation failed")
	}
	return imageFromResponse(resp, "image/png"), nil
}

func (c *Client) Edit(ctx context.Context, prompt string, attachments []conversation.Attachment) (*services.ImageResult, error) {
	parts := []genai.Part{}
	for _, attachment := range attachments {
		blob, err := blobFromAttachment(attachment)
		if err != nil {
			return nil, err
		}
		parts = append(parts, blob)
	}
	parts = append(parts, genai.Text(prompt))

	model := c.ai.GenerativeModel(c.imageModel)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, errors.Wrap(err, "gemini image edit failed")
	}

	fallbackMime := "image/png"
	if len(attachments) > 0 {
		fallbackMime = attachments[0].MimeType
	}
	return imageFromResponse(resp, fallbackMime), nil
}

func functionDeclarations(tools []services.ToolDeclaration) []*genai.FunctionDeclaration {
	ret := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		properties := map[string]*genai.Schema{}
		for name, param := range tool.Params {
			properties[name] = &genai.Schema{
				Type:        schemaType(param.Type),
				Description: param.Description,
			}
		}
		ret = append(ret, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   tool.Required,
			},
		})
	}
	return ret
}

func schemaType(name string) genai.Type {
	switch name {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	calls := []genai.FunctionCall{}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if call, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, call)
			}
		}
		break
	}
	return calls
}

func contentFromMessage(msg *conversation.Message) (*genai.Content, error) {
	content := &genai.Content{Role: string(msg.Role)}
	if strings.TrimSpace(msg.Text) != "" {
		content.Parts = append(content.Parts, genai.Text(msg.Text))
	}
	for _, attachment := range msg.Attachments {
		blob, err := blobFromAttachment(attachment)
		if err != nil {
			return nil, err
		}
		content.Parts = append(content.Parts, blob)
	}
	return content, nil
}

func blobFromAttachment(attachment conversation.Attachment) (genai.Blob, error) {
	data, err := base64.StdEncoding.DecodeString(attachment.Data)
	if err != nil {
		return genai.Blob{}, errors.Wrapf(err, "could not decode attachment %q", attachment.Name)
	}
	return genai.Blob{MIMEType: attachment.MimeType, Data: data}, nil
}

func textFromResponse(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				builder.WriteString(string(txt))
			}
		}
		break
	}
	return builder.String()
}

// imageFromResponse scans the first candidate for an inline image part.
// A text-only answer yields nil, which callers treat as a failed render.
func imageFromResponse(resp *genai.GenerateContentResponse, fallbackMime string) *services.ImageResult {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			blob, ok := part.(genai.Blob)
			if !ok {
				continue
			}
			mime := blob.MIMEType
			if mime == "" {
				mime = fallbackMime
			}
			return &services.ImageResult{Data: blob.Data, MimeType: mime}
		}
	}
	return nil
}

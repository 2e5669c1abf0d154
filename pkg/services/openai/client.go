package openai

// Package openai is the alternative provider: chat completions for the
// language model, Whisper for transcription, the images API for
// generation and edits.

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/services"
)

const defaultChatModel = openai.GPT4o

type Client struct {
	api       *openai.Client
	chatModel string
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

func NewClient(apiKey string, options ...Option) *Client {
	ret := &Client{
		api:       openai.NewClient(apiKey),
		chatModel: defaultChatModel,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
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

	messages := []openai.ChatCompletionMessage{}
	if instruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: instruction,
		})
	}
	for _, msg := range history {
		messages = append(messages, chatMessage(roleOf(msg.Role), msg.Text, msg.Attachments))
	}
	messages = append(messages, chatMessage(openai.ChatMessageRoleUser, text, attachments))

	log.Debug().
		Str("model", c.chatModel).
		Int("messages", len(messages)).
		Msg("sending chat turn to openai")

	request := openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: messages,
	}
	if len(config.Tools) > 0 {
		request.Tools = chatTools(config.Tools)
	}

	resp, err := c.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", errors.Wrap(err, "openai chat call failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	choice := resp.Choices[0].Message
	if len(choice.ToolCalls) == 0 {
		return choice.Content, nil
	}

	// Tool round trip: confirm every call, then ask for the final phrasing.
	log.Debug().
		Str("model", c.chatModel).
		Int("tool_calls", len(choice.ToolCalls)).
		Msg("answering tool calls")

	request.Messages = append(request.Messages, choice)
	for _, call := range choice.ToolCalls {
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			ToolCallID: call.ID,
			Content:    `{"success": true}`,
		})
	}

	final, err := c.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", errors.Wrap(err, "openai tool follow-up call failed")
	}
	if len(final.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return final.Choices[0].Message.Content, nil
}

func (c *Client) Transcribe(ctx context.Context, attachment conversation.Attachment) (string, error) {
	data, err := base64.StdEncoding.DecodeString(attachment.Data)
	if err != nil {
		return "", errors.Wrapf(err, "could not decode attachment %q", attachment.Name)
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: attachment.Name,
		Reader:   bytes.NewReader(data),
	})
	if err != nil {
		return "", errors.Wrap(err, "openai transcription failed")
	}
	return resp.Text, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (*services.ImageResult, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai image generation failed")
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode generated image")
	}
	return &services.ImageResult{Data: data, MimeType: "image/png"}, nil
}

// Edit goes through the images edit endpoint, which only accepts files, so
// the first attachment is spilled to a temp file for the call.
func (c *Client) Edit(ctx context.Context, prompt string, attachments []conversation.Attachment) (*services.ImageResult, error) {
	if len(attachments) == 0 {
		return nil, errors.New("no attachment to edit")
	}

	data, err := base64.StdEncoding.DecodeString(attachments[0].Data)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode attachment %q", attachments[0].Name)
	}

	file, err := os.CreateTemp("", "studio-edit-*.png")
	if err != nil {
		return nil, errors.Wrap(err, "could not stage image for editing")
	}
	defer func() {
		_ = file.Close()
		_ = os.Remove(file.Name())
	}()

	if _, err := file.Write(data); err != nil {
		return nil, errors.Wrap(err, "could not stage image for editing")
	}
	if _, err := file.Seek(0, 0); err != nil {
		return nil, errors.Wrap(err, "could not stage image for editing")
	}

	resp, err := c.api.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          file,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai image edit failed")
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	edited, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode edited image")
	}
	return &services.ImageResult{Data: edited, MimeType: attachments[0].MimeType}, nil
}

func chatTools(tools []services.ToolDeclaration) []openai.Tool {
	ret := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		properties := map[string]any{}
		for name, param := range tool.Params {
			property := map[string]any{"type": param.Type}
			if param.Description != "" {
				property["description"] = param.Description
			}
			properties[name] = property
		}
		ret = append(ret, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   tool.Required,
				},
			},
		})
	}
	return ret
}

// chatMessage builds either a plain text message or a multi-part message
// with inline images. Non-image attachments have no chat-completions
// representation and are skipped with a note in the text.
func chatMessage(role string, text string, attachments []conversation.Attachment) openai.ChatCompletionMessage {
	images := []conversation.Attachment{}
	skipped := []string{}
	for _, attachment := range attachments {
		if strings.HasPrefix(attachment.MimeType, "image/") {
			images = append(images, attachment)
		} else {
			skipped = append(skipped, attachment.Name)
		}
	}

	if len(skipped) > 0 {
		note := fmt.Sprintf("[anexos não suportados: %s]", strings.Join(skipped, ", "))
		if text == "" {
			text = note
		} else {
			text = text + "\n" + note
		}
	}

	if len(images) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: text}
	}

	parts := []openai.ChatMessagePart{}
	if text != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: text,
		})
	}
	for _, image := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", image.MimeType, image.Data),
			},
		})
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

func roleOf(role conversation.Role) string {
	if role == conversation.RoleModel {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

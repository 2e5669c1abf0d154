package actions

// Package actions recognizes and executes the structured directives a
// persona can embed in its reply instead of prose. An envelope is a tagged
// union: the action field selects one of five fixed two-phase protocols.

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/arqnb/studio/pkg/parse"
)

type ActionType string

const (
	ActionGenerateImage            ActionType = "generate_image"
	ActionEditImage                ActionType = "edit_image"
	ActionGenerateTextureFromText  ActionType = "generate_texture_from_text"
	ActionSeamlessTextureFromImage ActionType = "create_seamless_texture_from_image"
	ActionGenerateSoraPrompt       ActionType = "generate_sora_prompt"
)

// PromptPlaceholder marks where a directive's prompt wants the user's own
// words substituted before the service call.
const PromptPlaceholder = "[PROMPT DO USUÁRIO AQUI]"

// Envelope is one structured directive. Prompt is set for all actions
// except generate_sora_prompt, which carries the bilingual pair instead.
type Envelope struct {
	Action         ActionType `json:"action"`
	Prompt         string     `json:"prompt,omitempty"`
	PromptPT       string     `json:"prompt_pt,omitempty"`
	PromptEN       string     `json:"prompt_en,omitempty"`
	ResponseToUser string     `json:"response_to_user"`
}

const promptEnvelopeSchema = `{
	"type": "object",
	"required": ["action", "prompt", "response_to_user"],
	"properties": {
		"action": {"type": "string"},
		"prompt": {"type": "string"},
		"response_to_user": {"type": "string"}
	}
}`

const soraEnvelopeSchema = `{
	"type": "object",
	"required": ["action", "prompt_pt", "prompt_en", "response_to_user"],
	"properties": {
		"action": {"type": "string"},
		"prompt_pt": {"type": "string"},
		"prompt_en": {"type": "string"},
		"response_to_user": {"type": "string"}
	}
}`

var envelopeSchemas = map[ActionType]string{
	ActionGenerateImage:            promptEnvelopeSchema,
	ActionEditImage:                promptEnvelopeSchema,
	ActionGenerateTextureFromText:  promptEnvelopeSchema,
	ActionSeamlessTextureFromImage: promptEnvelopeSchema,
	ActionGenerateSoraPrompt:       soraEnvelopeSchema,
}

// Decode extracts an action envelope from raw model output. It reports
// false when the text holds no JSON object, when the action tag is not one
// of the five known ones, or when a known envelope misses required keys;
// in all those cases the caller falls through to the response classifier.
func Decode(raw string) (*Envelope, bool) {
	candidate, ok := parse.ExtractObject(raw)
	if !ok {
		return nil, false
	}

	envelope := &Envelope{}
	if err := json.Unmarshal([]byte(candidate), envelope); err != nil {
		return nil, false
	}

	schema, ok := envelopeSchemas[envelope.Action]
	if !ok {
		return nil, false
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(candidate),
	)
	if err != nil {
		log.Debug().Err(err).Str("action", string(envelope.Action)).Msg("envelope validation errored")
		return nil, false
	}
	if !result.Valid() {
		log.Debug().
			Str("action", string(envelope.Action)).
			Interface("errors", result.Errors()).
			Msg("envelope missing required keys")
		return nil, false
	}

	return envelope, true
}

package persona

// Package persona holds the static table of advisor personas. A persona is
// an id, an instruction prompt, a capability set and a seeded greeting; the
// table is built once at startup and immutable afterwards.

import (
	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/services"
)

// Capabilities gates which pipeline branches a persona may take.
type Capabilities struct {
	// Attachments allows the user to send files with a turn. Sends
	// carrying files for a persona without it are rejected outright.
	Attachments bool `yaml:"attachments"`
	// Actions allows the persona's replies to carry structured action
	// envelopes (image generation, editing, prompt pairs).
	Actions bool `yaml:"actions"`
	// AudioFirst routes turns whose first attachment is audio through the
	// transcribe-then-brief workflow.
	AudioFirst bool `yaml:"audioFirst"`
}

type Persona struct {
	ID           string
	Name         string
	Description  string
	Instruction  string
	Capabilities Capabilities

	// Tools are declared to the model on every one of this persona's
	// turns; the provider resolves any resulting function calls before
	// returning text. Empty for personas without integrations.
	Tools []services.ToolDeclaration

	greetingText string
	quickReplies []conversation.QuickReply
}

// Greeting builds the seed message for a new session. Each call returns a
// fresh message so sessions never share message identity.
func (p *Persona) Greeting() *conversation.Message {
	options := []conversation.MessageOption{}
	if len(p.quickReplies) > 0 {
		options = append(options, conversation.WithQuickReplies(p.quickReplies...))
	}
	return conversation.NewMessage(conversation.RoleModel, p.greetingText, options...)
}

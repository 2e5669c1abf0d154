package conversation

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Attachment is the transport form of a user-supplied file: base64 data
// plus the metadata needed to rebuild an inline part for a model call.
// Attachments are immutable once constructed; the payload is opaque to
// everything except the service adapters.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

func (a Attachment) IsAudio() bool {
	return strings.HasPrefix(a.MimeType, "audio/")
}

// QuickReply is a canned prompt surfaced as a button under a message.
type QuickReply struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// Message is a single conversation turn. Messages are append-only: once
// committed to a session they are never edited or removed.
type Message struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
	Time time.Time `json:"time"`

	Text         string       `json:"text,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	Payload      Payload      `json:"payload,omitempty"`
	QuickReplies []QuickReply `json:"quickReplies,omitempty"`
}

type MessageOption func(*Message)

func WithAttachments(attachments ...Attachment) MessageOption {
	return func(message *Message) {
		message.Attachments = attachments
	}
}

func WithPayload(payload Payload) MessageOption {
	return func(message *Message) {
		message.Payload = payload
	}
}

func WithQuickReplies(replies ...QuickReply) MessageOption {
	return func(message *Message) {
		message.QuickReplies = replies
	}
}

func WithTime(t time.Time) MessageOption {
	return func(message *Message) {
		message.Time = t
	}
}

func NewMessage(role Role, text string, options ...MessageOption) *Message {
	ret := &Message{
		ID:   uuid.New(),
		Role: role,
		Time: time.Now(),
		Text: text,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

// Empty reports whether the message carries neither text nor attachments.
// Empty messages are skipped when rebuilding history for a model call.
func (m *Message) Empty() bool {
	return strings.TrimSpace(m.Text) == "" && len(m.Attachments) == 0
}

func (m *Message) MarshalJSON() ([]byte, error) {
	type Alias Message
	payloadType := PayloadType("")
	if m.Payload != nil {
		payloadType = m.Payload.PayloadType()
	}
	return json.Marshal(&struct {
		PayloadType PayloadType `json:"payloadType,omitempty"`
		*Alias
	}{
		PayloadType: payloadType,
		Alias:       (*Alias)(m),
	})
}

// UnmarshalJSON rebuilds the concrete payload from the payloadType
// discriminator written by MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	type Alias Message
	aux := &struct {
		PayloadType PayloadType     `json:"payloadType"`
		Payload     json.RawMessage `json:"payload"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if aux.PayloadType == "" || len(aux.Payload) == 0 {
		return nil
	}

	payload, ok := newPayload(aux.PayloadType)
	if !ok {
		return errors.Errorf("unknown payload type %q", aux.PayloadType)
	}
	if err := json.Unmarshal(aux.Payload, payload); err != nil {
		return errors.Wrapf(err, "could not decode %s payload", aux.PayloadType)
	}
	m.Payload = payload
	return nil
}

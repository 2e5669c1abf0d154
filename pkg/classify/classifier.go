package classify

// Package classify turns raw model output into a typed, displayable
// message. Recognition is persona-gated: each document-producing persona
// has exactly one payload shape it is trusted to emit. The plain-text
// fallback is the universal terminal case and never fails.

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/parse"
	"github.com/arqnb/studio/pkg/persona"
)

const (
	msgPresentationReady = "Sua apresentação está pronta! Use o visualizador abaixo para navegar pelos slides e baixar o arquivo em .pdf."
	msgBriefingReady     = "Seu documento está pronto! Você pode visualizá-lo abaixo e fazer o download em .pdf."
	msgReviewReady       = "Sua análise de projeto executivo está pronta! Confira o checklist abaixo."

	reviewDateLayout = "02/01/2006"
)

type Classifier struct {
	now func() time.Time
}

type Option func(*Classifier)

// WithClock fixes the timestamp source; tests use it to pin the review
// date stamp.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

func New(options ...Option) *Classifier {
	ret := &Classifier{now: time.Now}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// probe is the superset of every recognizable document shape. Which field
// is honored depends on the persona.
type probe struct {
	Slides           []conversation.Slide          `json:"slides"`
	Briefing         *conversation.Briefing        `json:"briefing"`
	FollowUpQuestion string                        `json:"followUpQuestion"`
	ExecutiveReview  *conversation.ExecutiveReview `json:"executiveReview"`
	Quotation        *conversation.Quotation       `json:"quotation"`
}

// Classify maps raw response text to a typed message for the given
// persona. userMsg is the triggering turn, consulted for the attachment
// file name stamped onto executive reviews.
func (c *Classifier) Classify(personaID string, raw string, userMsg *conversation.Message) *conversation.Message {
	candidate, ok := parse.ExtractObject(raw)
	if !ok {
		return conversation.NewMessage(conversation.RoleModel, raw)
	}

	parsed := &probe{}
	if err := json.Unmarshal([]byte(candidate), parsed); err != nil {
		log.Debug().Err(err).Str("persona_id", personaID).Msg("extracted object does not decode, falling back to text")
		return conversation.NewMessage(conversation.RoleModel, raw)
	}

	switch personaID {
	case persona.IDAgnaldo:
		// An empty slides array is still a presentation; only a missing
		// key falls through to prose.
		if parsed.Slides != nil {
			return conversation.NewMessage(
				conversation.RoleModel,
				msgPresentationReady,
				conversation.WithPayload(&conversation.Presentation{Slides: parsed.Slides}),
			)
		}

	case persona.IDBenedito:
		if parsed.Briefing != nil {
			text := parsed.FollowUpQuestion
			if text == "" {
				text = msgBriefingReady
			}
			return conversation.NewMessage(
				conversation.RoleModel,
				text,
				conversation.WithPayload(parsed.Briefing),
			)
		}

	case persona.IDDivina:
		if parsed.ExecutiveReview != nil {
			review := parsed.ExecutiveReview
			// The triggering turn may be a text prompt referring back to an
			// earlier upload, so the file name is best-effort.
			if userMsg != nil && len(userMsg.Attachments) > 0 {
				review.File = userMsg.Attachments[0].Name
			}
			review.Date = c.now().Format(reviewDateLayout)
			return conversation.NewMessage(
				conversation.RoleModel,
				msgReviewReady,
				conversation.WithPayload(review),
			)
		}

	case persona.IDMauricia:
		if parsed.Quotation != nil {
			return conversation.NewMessage(
				conversation.RoleModel,
				"",
				conversation.WithPayload(parsed.Quotation),
			)
		}
	}

	return conversation.NewMessage(conversation.RoleModel, raw)
}

package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/persona"
)

func TestClassifyPresentation(t *testing.T) {
	raw := `{"slides": [{"type": "title", "data": {"heading": "Proposta"}}]}`

	msg := New().Classify(persona.IDAgnaldo, raw, userTurn())

	presentation, ok := msg.Payload.(*conversation.Presentation)
	require.True(t, ok)
	require.Len(t, presentation.Slides, 1)
	require.Equal(t, "title", presentation.Slides[0].Type)
	require.Equal(t, msgPresentationReady, msg.Text)
}

func TestClassifyEmptySlidesArrayStillBuildsPresentation(t *testing.T) {
	raw := `{"slides": []}`

	msg := New().Classify(persona.IDAgnaldo, raw, userTurn())

	presentation, ok := msg.Payload.(*conversation.Presentation)
	require.True(t, ok)
	require.Empty(t, presentation.Slides)
	require.Equal(t, msgPresentationReady, msg.Text)
}

func TestClassifyBriefingUsesFollowUpQuestion(t *testing.T) {
	raw := `{"briefing": {"title": "Reunião", "sections": [{"title": "Escopo", "content": "..."}]}, "followUpQuestion": "Qual o prazo?"}`

	msg := New().Classify(persona.IDBenedito, raw, userTurn())

	briefing, ok := msg.Payload.(*conversation.Briefing)
	require.True(t, ok)
	require.Equal(t, "Reunião", briefing.Title)
	require.Equal(t, "Qual o prazo?", msg.Text)
}

func TestClassifyBriefingDefaultCompanionText(t *testing.T) {
	raw := `{"briefing": {"title": "Reunião", "sections": []}}`

	msg := New().Classify(persona.IDBenedito, raw, userTurn())
	require.Equal(t, msgBriefingReady, msg.Text)
}

func TestClassifyExecutiveReviewStampsDateAndFile(t *testing.T) {
	raw := `{"executiveReview": {"project": "Casa X", "summary": {"status": "ok"}, "sections": []}}`
	fixed := time.Date(2025, time.March, 9, 15, 0, 0, 0, time.UTC)
	classifier := New(WithClock(func() time.Time { return fixed }))

	triggering := userTurn(conversation.Attachment{Name: "projeto.pdf", MimeType: "application/pdf", Data: "aGk="})
	msg := classifier.Classify(persona.IDDivina, raw, triggering)

	review, ok := msg.Payload.(*conversation.ExecutiveReview)
	require.True(t, ok)
	require.Equal(t, "projeto.pdf", review.File)
	require.Equal(t, "09/03/2025", review.Date)
	require.Equal(t, msgReviewReady, msg.Text)
}

func TestClassifyExecutiveReviewWithoutAttachmentKeepsModelFile(t *testing.T) {
	raw := `{"executiveReview": {"project": "Casa X", "file": "do-modelo.pdf", "summary": {"status": "ok"}, "sections": []}}`

	msg := New().Classify(persona.IDDivina, raw, userTurn())

	review, ok := msg.Payload.(*conversation.ExecutiveReview)
	require.True(t, ok)
	require.Equal(t, "do-modelo.pdf", review.File)
}

func TestClassifyQuotationHasNoCompanionText(t *testing.T) {
	raw := `{"quotation": {"items": [{"name": "Porcelanato", "quantity": "10"}]}}`

	msg := New().Classify(persona.IDMauricia, raw, userTurn())

	quotation, ok := msg.Payload.(*conversation.Quotation)
	require.True(t, ok)
	require.Len(t, quotation.Items, 1)
	require.Equal(t, "", msg.Text)
}

func TestClassifyShapeGatedByPersona(t *testing.T) {
	// a quotation coming from a persona that does not produce quotations
	// falls through to plain text
	raw := `{"quotation": {"items": []}}`

	msg := New().Classify(persona.IDLeonor, raw, userTurn())
	require.Nil(t, msg.Payload)
	require.Equal(t, raw, msg.Text)
}

func TestClassifyPlainProseFallsBackVerbatim(t *testing.T) {
	raw := "Olá! Sugiro luminárias pendentes para a sala."

	msg := New().Classify(persona.IDLeonor, raw, userTurn())
	require.Equal(t, conversation.RoleModel, msg.Role)
	require.Equal(t, raw, msg.Text)
	require.Nil(t, msg.Payload)
}

func TestClassifyUnrecognizedObjectFallsBackVerbatim(t *testing.T) {
	raw := `{"alguma": "coisa"}`

	msg := New().Classify(persona.IDAgnaldo, raw, userTurn())
	require.Equal(t, raw, msg.Text)
	require.Nil(t, msg.Payload)
}

func userTurn(attachments ...conversation.Attachment) *conversation.Message {
	options := []conversation.MessageOption{}
	if len(attachments) > 0 {
		options = append(options, conversation.WithAttachments(attachments...))
	}
	return conversation.NewMessage(conversation.RoleUser, "oi", options...)
}

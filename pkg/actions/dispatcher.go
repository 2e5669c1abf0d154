package actions

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/events"
	"github.com/arqnb/studio/pkg/services"
)

// User-facing captions and apologies, one fixed pair per action.
const (
	msgMoodboardReady  = "Seu moodboard tá na mão! O que achou? 😎\n\nSe quiser sugestões de materiais reais pra usar baseado nesse moodboard, manda a imagem pra Maurícia."
	msgMoodboardFailed = "Eita, deu ruim aqui na hora de gerar o moodboard. Tenta de novo, talvez com um prompt diferente?"
	msgImageEdited     = "Prontinho! ✨ Aqui está sua imagem editada:"
	msgImageEditFailed = "Ops, algo deu errado ao editar a imagem. Tente novamente."
	msgTextureReady    = "Sua textura está pronta! O que achou? Agora é só baixar e usar no seu projeto. ✨"
	msgSeamlessReady   = "Prontinho! ✨ Aqui está sua textura seamless:"
	msgTextureFailed   = "Ops, algo deu errado ao criar a textura. Tente novamente."
)

// Dispatcher executes action envelopes against the image services. Every
// service failure is caught here and converted into one fixed, per-action
// failure message; nothing propagates back to the orchestrator.
type Dispatcher struct {
	store     conversation.Store
	generator services.ImageGenerator
	editor    services.ImageEditor
	sink      events.Sink
}

type DispatcherOption func(*Dispatcher)

func WithSink(sink events.Sink) DispatcherOption {
	return func(d *Dispatcher) {
		d.sink = sink
	}
}

func NewDispatcher(
	store conversation.Store,
	generator services.ImageGenerator,
	editor services.ImageEditor,
	options ...DispatcherOption,
) *Dispatcher {
	ret := &Dispatcher{
		store:     store,
		generator: generator,
		editor:    editor,
		sink:      events.NullSink{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Dispatch runs the envelope's two-phase protocol: acknowledge with the
// directive's own response_to_user, then generate or edit. It appends
// exactly two messages, except generate_sora_prompt which appends one.
// userMsg is the turn that triggered the directive; it supplies the user's
// own words for placeholder substitution and the preferred edit target.
func (d *Dispatcher) Dispatch(ctx context.Context, personaID string, envelope *Envelope, userMsg *conversation.Message) {
	log.Debug().
		Str("persona_id", personaID).
		Str("action", string(envelope.Action)).
		Msg("dispatching action")
	d.publishPhase(personaID, "acknowledge", envelope)

	userText := ""
	if userMsg != nil {
		userText = userMsg.Text
	}

	switch envelope.Action {
	case ActionGenerateSoraPrompt:
		// Single-phase: the prompt pair is the result, no remote call.
		d.append(personaID, conversation.NewMessage(
			conversation.RoleModel,
			envelope.ResponseToUser,
			conversation.WithPayload(&conversation.BilingualPrompt{
				PT: envelope.PromptPT,
				EN: envelope.PromptEN,
			}),
		))

	case ActionGenerateImage:
		d.append(personaID, conversation.NewMessage(conversation.RoleModel, envelope.ResponseToUser))
		d.generate(ctx, personaID, envelope.Prompt, msgMoodboardReady, msgMoodboardFailed)

	case ActionGenerateTextureFromText:
		// This directive substitutes the user's words in the acknowledgement
		// as well as in the prompt.
		ack := substitute(envelope.ResponseToUser, userText)
		d.append(personaID, conversation.NewMessage(conversation.RoleModel, ack))
		d.generate(ctx, personaID, substitute(envelope.Prompt, userText), msgTextureReady, msgTextureFailed)

	case ActionEditImage:
		d.append(personaID, conversation.NewMessage(conversation.RoleModel, envelope.ResponseToUser))
		d.edit(ctx, personaID, substitute(envelope.Prompt, userText), userMsg, msgImageEdited, msgImageEditFailed)

	case ActionSeamlessTextureFromImage:
		d.append(personaID, conversation.NewMessage(conversation.RoleModel, envelope.ResponseToUser))
		d.edit(ctx, personaID, envelope.Prompt, userMsg, msgSeamlessReady, msgTextureFailed)

	default:
		// Decode only hands over known actions; treat anything else as a bug.
		log.Error().Str("action", string(envelope.Action)).Msg("unknown action reached the dispatcher")
	}

	d.publishPhase(personaID, "done", envelope)
}

func (d *Dispatcher) generate(ctx context.Context, personaID string, prompt string, caption string, apology string) {
	d.publishPhase(personaID, "generate", nil)

	result, err := d.generator.Generate(ctx, prompt)
	if err != nil || result == nil {
		if err != nil {
			log.Warn().Err(err).Str("persona_id", personaID).Msg("image generation failed")
		}
		d.append(personaID, conversation.NewMessage(conversation.RoleModel, apology))
		return
	}

	d.append(personaID, conversation.NewMessage(
		conversation.RoleModel,
		caption,
		conversation.WithPayload(&conversation.Image{URL: result.DataURL()}),
	))
}

func (d *Dispatcher) edit(
	ctx context.Context,
	personaID string,
	prompt string,
	userMsg *conversation.Message,
	caption string,
	apology string,
) {
	targets := d.resolveEditTargets(personaID, userMsg)
	if len(targets) == 0 {
		log.Warn().Str("persona_id", personaID).Msg("no attachment found to edit")
		d.append(personaID, conversation.NewMessage(conversation.RoleModel, apology))
		return
	}

	d.publishPhase(personaID, "edit", nil)

	result, err := d.editor.Edit(ctx, prompt, targets)
	if err != nil || result == nil {
		if err != nil {
			log.Warn().Err(err).Str("persona_id", personaID).Msg("image edit failed")
		}
		d.append(personaID, conversation.NewMessage(conversation.RoleModel, apology))
		return
	}

	d.append(personaID, conversation.NewMessage(
		conversation.RoleModel,
		caption,
		conversation.WithPayload(&conversation.Image{URL: result.DataURL()}),
	))
}

// resolveEditTargets prefers attachments on the triggering turn, then scans
// the session backward for the most recent user turn that carries any.
func (d *Dispatcher) resolveEditTargets(personaID string, userMsg *conversation.Message) []conversation.Attachment {
	if userMsg != nil && len(userMsg.Attachments) > 0 {
		return userMsg.Attachments
	}

	session, err := d.store.ActiveSession(personaID)
	if err != nil {
		log.Error().Err(err).Str("persona_id", personaID).Msg("could not read session for edit target")
		return nil
	}

	for i := len(session.Messages) - 1; i >= 0; i-- {
		msg := session.Messages[i]
		if msg.Role == conversation.RoleUser && len(msg.Attachments) > 0 {
			return msg.Attachments
		}
	}
	return nil
}

func (d *Dispatcher) append(personaID string, msg *conversation.Message) {
	if err := d.store.Append(personaID, msg); err != nil {
		log.Error().Err(err).Str("persona_id", personaID).Msg("could not append action message")
		return
	}
	if err := d.sink.PublishEvent(events.New(events.TypeMessageAppended, personaID, events.WithMessage(msg))); err != nil {
		log.Warn().Err(err).Msg("could not publish append event")
	}
}

func (d *Dispatcher) publishPhase(personaID string, phase string, envelope *Envelope) {
	detail := phase
	if envelope != nil {
		detail = phase + ":" + string(envelope.Action)
	}
	if err := d.sink.PublishEvent(events.New(events.TypeActionPhase, personaID, events.WithDetail(detail))); err != nil {
		log.Warn().Err(err).Msg("could not publish action phase event")
	}
}

func substitute(prompt string, userText string) string {
	return strings.ReplaceAll(prompt, PromptPlaceholder, userText)
}

package orchestrator

// Package orchestrator coordinates one user turn end to end: attachment
// encoding, history mutation, the model call, action dispatch and response
// classification. At most one turn is in flight per persona; different
// personas run concurrently.

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/arqnb/studio/pkg/actions"
	"github.com/arqnb/studio/pkg/classify"
	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/events"
	"github.com/arqnb/studio/pkg/persona"
	"github.com/arqnb/studio/pkg/services"
)

var (
	// ErrBusy rejects a send while another turn is in flight for the same
	// persona. Nothing is appended; the caller may retry once the first
	// turn resolves.
	ErrBusy = errors.New("a turn is already in flight for this persona")
	// ErrEmptyTurn rejects a send with neither text nor attachments.
	ErrEmptyTurn = errors.New("nothing to send")
	// ErrAttachmentsNotAllowed rejects files sent to a persona whose
	// capability set does not include attachments.
	ErrAttachmentsNotAllowed = errors.New("persona does not accept attachments")
)

const (
	msgEncodingFailed = "Desculpe, houve um erro ao processar seus arquivos."
	msgTranscribing   = "Recebi seu áudio! Estou transcrevendo para poder te ajudar..."

	// transcriptionFailurePrefix marks a sentinel failure transcript; the
	// transcriber degrades its own errors to this apology form.
	transcriptionFailurePrefix = "Desculpe,"

	transcriptSectionFormat  = "%s\n\n**Transcrição do Áudio:**\n%s"
	defaultBriefingDirective = "Use a seguinte transcrição para gerar o briefing:\n\n%s"
)

type Orchestrator struct {
	registry    *persona.Registry
	store       conversation.Store
	model       services.LanguageModel
	transcriber services.Transcriber
	dispatcher  *actions.Dispatcher
	classifier  *classify.Classifier
	sink        events.Sink

	mu       sync.Mutex
	inflight map[string]struct{}
}

type Option func(*Orchestrator)

func WithSink(sink events.Sink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

func WithClassifier(classifier *classify.Classifier) Option {
	return func(o *Orchestrator) {
		o.classifier = classifier
	}
}

func New(
	registry *persona.Registry,
	store conversation.Store,
	model services.LanguageModel,
	transcriber services.Transcriber,
	generator services.ImageGenerator,
	editor services.ImageEditor,
	options ...Option,
) *Orchestrator {
	ret := &Orchestrator{
		registry:    registry,
		store:       store,
		model:       model,
		transcriber: transcriber,
		classifier:  classify.New(),
		sink:        events.NullSink{},
		inflight:    map[string]struct{}{},
	}
	for _, option := range options {
		option(ret)
	}
	ret.dispatcher = actions.NewDispatcher(store, generator, editor, actions.WithSink(ret.sink))
	return ret
}

// Send runs the full pipeline for one user turn against the persona's
// active session.
//
// Rejections (unknown persona, empty turn, busy persona) return an error
// and leave the session untouched. Once the turn is accepted, every
// failure degrades to a user-visible message and Send returns nil: no
// error from the external services propagates past this method.
func (o *Orchestrator) Send(ctx context.Context, personaID string, text string, files []File) error {
	p, ok := o.registry.Get(personaID)
	if !ok {
		return errors.Errorf("unknown persona %q", personaID)
	}
	if strings.TrimSpace(text) == "" && len(files) == 0 {
		return ErrEmptyTurn
	}
	if len(files) > 0 && !p.Capabilities.Attachments {
		return ErrAttachmentsNotAllowed
	}
	if !o.acquire(personaID) {
		return ErrBusy
	}
	defer o.release(personaID)

	log.Debug().
		Str("persona_id", personaID).
		Int("files", len(files)).
		Msg("starting turn")
	o.publish(events.New(events.TypeTurnStarted, personaID))

	attachments, err := encodeFiles(files)
	if err != nil {
		// Terminal local failure: nothing was sent yet and nothing will be.
		log.Warn().Err(err).Str("persona_id", personaID).Msg("attachment encoding failed")
		o.append(personaID, conversation.NewMessage(conversation.RoleModel, msgEncodingFailed))
		o.publish(events.New(events.TypeTurnFailed, personaID, events.WithDetail("attachment encoding")))
		return nil
	}

	// Snapshot the history before committing the user turn: the model call
	// wants the session as it was when the user hit send.
	prior, err := o.store.ActiveSession(personaID)
	if err != nil {
		return err
	}

	userMsg := conversation.NewMessage(conversation.RoleUser, text, conversation.WithAttachments(attachments...))
	o.append(personaID, userMsg)

	if p.Capabilities.AudioFirst && len(attachments) > 0 && attachments[0].IsAudio() {
		o.transcribeThenBrief(ctx, p, text, userMsg)
		return nil
	}

	raw, err := o.model.Send(ctx, p.Instruction, text, historyForModel(prior.Messages), attachments, sendOptions(p)...)
	if err != nil {
		log.Warn().Err(err).Str("persona_id", personaID).Msg("model call failed")
		o.append(personaID, conversation.NewMessage(conversation.RoleModel, apology(err)))
		o.publish(events.New(events.TypeTurnFailed, personaID, events.WithDetail("model call")))
		return nil
	}

	if p.Capabilities.Actions {
		if envelope, ok := actions.Decode(raw); ok {
			o.dispatcher.Dispatch(ctx, personaID, envelope, userMsg)
			o.publish(events.New(events.TypeTurnCompleted, personaID))
			return nil
		}
	}

	o.append(personaID, o.classifier.Classify(personaID, raw, userMsg))
	o.publish(events.New(events.TypeTurnCompleted, personaID))
	return nil
}

// NewSession creates a fresh seeded session for the persona and makes it
// active.
func (o *Orchestrator) NewSession(personaID string) (*conversation.Session, error) {
	return o.store.NewSession(personaID)
}

// SelectSession switches the persona's active session.
func (o *Orchestrator) SelectSession(personaID string, index int) error {
	return o.store.SelectSession(personaID, index)
}

// briefState names the phases of the transcribe-then-brief workflow.
// Failed and Done are terminal; there is no automatic retry.
type briefState string

const (
	stateTranscribing briefState = "transcribing"
	stateComposing    briefState = "composing"
	stateDone         briefState = "done"
	stateFailed       briefState = "failed"
)

// transcribeThenBrief replaces the direct model call for audio-first
// personas: transcribe the audio, then compose the brief from the
// transcript. The transient processing notice stays in the session; the
// terminal message is appended after it.
func (o *Orchestrator) transcribeThenBrief(ctx context.Context, p *persona.Persona, text string, userMsg *conversation.Message) {
	o.logState(p.ID, stateTranscribing)
	o.append(p.ID, conversation.NewMessage(conversation.RoleModel, msgTranscribing))

	transcript, err := o.transcriber.Transcribe(ctx, userMsg.Attachments[0])
	if err != nil || strings.HasPrefix(transcript, transcriptionFailurePrefix) {
		failure := transcript
		if err != nil {
			log.Warn().Err(err).Str("persona_id", p.ID).Msg("transcription failed")
			failure = apology(err)
		}
		o.logState(p.ID, stateFailed)
		o.append(p.ID, conversation.NewMessage(conversation.RoleModel, failure))
		o.publish(events.New(events.TypeTurnFailed, p.ID, events.WithDetail("transcription")))
		return
	}

	o.logState(p.ID, stateComposing)
	combined := fmt.Sprintf(defaultBriefingDirective, transcript)
	if strings.TrimSpace(text) != "" {
		combined = fmt.Sprintf(transcriptSectionFormat, text, transcript)
	}

	// The full history, audio turn included, gives the model the context of
	// the recording; the transcript travels in the prompt, not as a file.
	full, err := o.store.ActiveSession(p.ID)
	if err != nil {
		log.Error().Err(err).Str("persona_id", p.ID).Msg("could not read session for briefing")
		return
	}

	raw, err := o.model.Send(ctx, p.Instruction, combined, historyForModel(full.Messages), nil, sendOptions(p)...)
	if err != nil {
		log.Warn().Err(err).Str("persona_id", p.ID).Msg("briefing call failed")
		o.logState(p.ID, stateFailed)
		o.append(p.ID, conversation.NewMessage(conversation.RoleModel, apology(err)))
		o.publish(events.New(events.TypeTurnFailed, p.ID, events.WithDetail("briefing")))
		return
	}

	o.logState(p.ID, stateDone)
	o.append(p.ID, o.classifier.Classify(p.ID, raw, userMsg))
	o.publish(events.New(events.TypeTurnCompleted, p.ID))
}

// sendOptions declares the persona's tool repertoire to the model, so a
// scheduling-capable persona can answer with confirmed calendar calls.
func sendOptions(p *persona.Persona) []services.SendOption {
	if len(p.Tools) == 0 {
		return nil
	}
	return []services.SendOption{services.WithTools(p.Tools...)}
}

// historyForModel rebuilds prior history for the remote call: empty
// messages are dropped, and leading model turns (the seed greeting) are
// stripped so the first entry is always a user turn.
func historyForModel(msgs []*conversation.Message) []*conversation.Message {
	filtered := make([]*conversation.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Empty() {
			continue
		}
		filtered = append(filtered, msg)
	}
	for len(filtered) > 0 && filtered[0].Role == conversation.RoleModel {
		filtered = filtered[1:]
	}
	return filtered
}

func (o *Orchestrator) acquire(personaID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.inflight[personaID]; ok {
		return false
	}
	o.inflight[personaID] = struct{}{}
	return true
}

func (o *Orchestrator) release(personaID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, personaID)
}

func (o *Orchestrator) append(personaID string, msg *conversation.Message) {
	if err := o.store.Append(personaID, msg); err != nil {
		log.Error().Err(err).Str("persona_id", personaID).Msg("could not append message")
		return
	}
	o.publish(events.New(events.TypeMessageAppended, personaID, events.WithMessage(msg)))
}

func (o *Orchestrator) publish(event events.Event) {
	if err := o.sink.PublishEvent(event); err != nil {
		log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("could not publish event")
	}
}

func (o *Orchestrator) logState(personaID string, state briefState) {
	log.Debug().Str("persona_id", personaID).Str("state", string(state)).Msg("briefing workflow transition")
	o.publish(events.New(events.TypeActionPhase, personaID, events.WithDetail("briefing:"+string(state))))
}

func apology(err error) string {
	return fmt.Sprintf("Desculpe, ocorreu um erro: %s", err)
}

package orchestrator

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/events"
	"github.com/arqnb/studio/pkg/persona"
	"github.com/arqnb/studio/pkg/services"
)

func TestEveryPersonaStartsWithOneSeededSession(t *testing.T) {
	fixture := newFixture(t)

	for _, p := range fixture.registry.All() {
		sessions, err := fixture.store.Sessions(p.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 1, p.ID)
		require.Len(t, sessions[0].Messages, 1, p.ID)
		require.Equal(t, conversation.RoleModel, sessions[0].Messages[0].Role)
	}
}

func TestPlainTurnAppendsUserAndClassifiedReply(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "Olá! Como posso ajudar?"

	err := fixture.orch.Send(context.Background(), persona.IDLeonor, "Oi", nil)
	require.NoError(t, err)

	msgs := fixture.messages(t, persona.IDLeonor)
	require.Len(t, msgs, 3)
	require.Equal(t, conversation.RoleModel, msgs[0].Role) // greeting
	require.Equal(t, "Oi", msgs[1].Text)
	require.Equal(t, conversation.RoleUser, msgs[1].Role)
	require.Equal(t, "Olá! Como posso ajudar?", msgs[2].Text)
	require.Equal(t, conversation.RoleModel, msgs[2].Role)
}

func TestEmptyTurnIsANoOp(t *testing.T) {
	fixture := newFixture(t)

	err := fixture.orch.Send(context.Background(), persona.IDLeonor, "   ", nil)
	require.True(t, errors.Is(err, ErrEmptyTurn))

	require.Len(t, fixture.messages(t, persona.IDLeonor), 1)
	require.Empty(t, fixture.model.calls)

	// the gate was never taken, a real turn still goes through
	fixture.model.response = "oi"
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "Oi", nil))
}

func TestUnknownPersonaIsRejected(t *testing.T) {
	fixture := newFixture(t)

	err := fixture.orch.Send(context.Background(), "nope", "Oi", nil)
	require.Error(t, err)
	require.Empty(t, fixture.model.calls)
}

func TestGreetingIsStrippedFromModelHistory(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "resposta"

	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "primeira", nil))
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "segunda", nil))

	require.Len(t, fixture.model.calls, 2)
	require.Empty(t, fixture.model.calls[0].history)

	second := fixture.model.calls[1].history
	require.Len(t, second, 2) // user turn + model reply, no greeting
	require.Equal(t, conversation.RoleUser, second[0].Role)
	require.Equal(t, "primeira", second[0].Text)
}

func TestModelFailureDegradesToApologyMessage(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.err = errors.New("rede caiu")

	err := fixture.orch.Send(context.Background(), persona.IDLeonor, "Oi", nil)
	require.NoError(t, err)

	msgs := fixture.messages(t, persona.IDLeonor)
	require.Len(t, msgs, 3)
	require.True(t, strings.HasPrefix(msgs[2].Text, "Desculpe, ocorreu um erro:"))
}

func TestAttachmentsAreBase64Encoded(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "recebi"

	file := File{Name: "foto.png", MimeType: "image/png", Reader: strings.NewReader("hello")}
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "olha", []File{file}))

	require.Len(t, fixture.model.calls, 1)
	sent := fixture.model.calls[0].attachments
	require.Len(t, sent, 1)
	require.Equal(t, "foto.png", sent[0].Name)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), sent[0].Data)

	// attachment metadata is retained on the committed user turn
	msgs := fixture.messages(t, persona.IDLeonor)
	require.Len(t, msgs[1].Attachments, 1)
}

func TestEncodingFailureAbortsBeforeAnyNetworkCall(t *testing.T) {
	fixture := newFixture(t)

	file := File{Name: "quebrado.png", MimeType: "image/png", Reader: failingReader{}}
	err := fixture.orch.Send(context.Background(), persona.IDLeonor, "olha", []File{file})
	require.NoError(t, err)

	msgs := fixture.messages(t, persona.IDLeonor)
	require.Len(t, msgs, 2) // greeting + failure notice, no user turn
	require.Equal(t, msgEncodingFailed, msgs[1].Text)
	require.Empty(t, fixture.model.calls)

	// the gate was released on the failure path
	fixture.model.response = "oi"
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "Oi", nil))
}

func TestActionEnvelopeRunsTwoPhaseProtocol(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "```json\n{\"action\":\"generate_image\",\"prompt\":\"X\",\"response_to_user\":\"ok\"}\n```"
	fixture.generator.result = nil // generation yields nothing

	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDRogerio, "gera", nil))

	msgs := fixture.messages(t, persona.IDRogerio)
	require.Len(t, msgs, 4) // greeting, user, ack, failure
	require.Equal(t, "ok", msgs[2].Text)
	require.Nil(t, msgs[2].Payload)
	require.Nil(t, msgs[3].Payload) // no image message on failure
	require.NotEqual(t, "ok", msgs[3].Text)
}

func TestActionEnvelopeWithImageResult(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = `{"action":"generate_image","prompt":"X","response_to_user":"ok"}`
	fixture.generator.result = &services.ImageResult{Data: []byte{1}, MimeType: "image/png"}

	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDRogerio, "gera", nil))

	msgs := fixture.messages(t, persona.IDRogerio)
	require.Len(t, msgs, 4)
	_, ok := msgs[3].Payload.(*conversation.Image)
	require.True(t, ok)
}

func TestEnvelopeFromActionlessPersonaIsClassifiedAsText(t *testing.T) {
	fixture := newFixture(t)
	raw := `{"action":"generate_image","prompt":"X","response_to_user":"ok"}`
	fixture.model.response = raw

	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "gera", nil))

	msgs := fixture.messages(t, persona.IDLeonor)
	require.Len(t, msgs, 3)
	require.Equal(t, raw, msgs[2].Text)
	require.Empty(t, fixture.generator.prompts)
}

func TestAudioFirstTurnTranscribesThenBriefs(t *testing.T) {
	fixture := newFixture(t)
	fixture.transcriber.transcript = "cliente quer uma cozinha integrada"
	fixture.model.response = "aqui vai o briefing"

	file := File{Name: "reuniao.mp3", MimeType: "audio/mpeg", Reader: strings.NewReader("áudio")}
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDBenedito, "", []File{file}))

	msgs := fixture.messages(t, persona.IDBenedito)
	require.Len(t, msgs, 4)
	require.Len(t, msgs[1].Attachments, 1)              // audio turn retained
	require.Equal(t, msgTranscribing, msgs[2].Text)     // transient notice kept
	require.Equal(t, "aqui vai o briefing", msgs[3].Text)

	require.Len(t, fixture.model.calls, 1)
	call := fixture.model.calls[0]
	require.Contains(t, call.text, "Use a seguinte transcrição para gerar o briefing:")
	require.Contains(t, call.text, "cliente quer uma cozinha integrada")
	require.Empty(t, call.attachments) // transcript travels in the prompt

	// the composing call sees the full session: audio turn then notice
	require.Len(t, call.history, 2)
	require.Len(t, call.history[0].Attachments, 1)
	require.Equal(t, msgTranscribing, call.history[1].Text)
}

func TestAudioFirstWithTextLabelsTheTranscript(t *testing.T) {
	fixture := newFixture(t)
	fixture.transcriber.transcript = "uma transcrição"
	fixture.model.response = "briefing"

	file := File{Name: "r.ogg", MimeType: "audio/ogg", Reader: strings.NewReader("x")}
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDBenedito, "Resuma a reunião", []File{file}))

	call := fixture.model.calls[0]
	require.True(t, strings.HasPrefix(call.text, "Resuma a reunião"))
	require.Contains(t, call.text, "**Transcrição do Áudio:**")
	require.Contains(t, call.text, "uma transcrição")
}

func TestAudioFirstSentinelFailureIsTerminal(t *testing.T) {
	fixture := newFixture(t)
	fixture.transcriber.transcript = "Desculpe, não consegui entender o áudio."

	file := File{Name: "r.wav", MimeType: "audio/wav", Reader: strings.NewReader("x")}
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDBenedito, "", []File{file}))

	msgs := fixture.messages(t, persona.IDBenedito)
	require.Len(t, msgs, 4)
	require.Equal(t, msgTranscribing, msgs[2].Text)
	require.Equal(t, "Desculpe, não consegui entender o áudio.", msgs[3].Text)
	require.Empty(t, fixture.model.calls) // no briefing call after failure
}

func TestAttachmentsRejectedForPersonasWithoutTheCapability(t *testing.T) {
	fixture := newFixture(t)

	file := File{Name: "foto.png", MimeType: "image/png", Reader: strings.NewReader("x")}
	err := fixture.orch.Send(context.Background(), persona.IDAntonio, "olha", []File{file})
	require.True(t, errors.Is(err, ErrAttachmentsNotAllowed))

	require.Len(t, fixture.messages(t, persona.IDAntonio), 1)
	require.Empty(t, fixture.model.calls)

	// the gate was never taken, a plain turn still goes through
	fixture.model.response = "oi"
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDAntonio, "Oi", nil))
}

func TestSchedulingToolsDeclaredForMagnolia(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "Agendado!"

	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDMagnolia, "marca reunião amanhã às 10h", nil))

	require.Len(t, fixture.model.calls, 1)
	tools := fixture.model.calls[0].tools
	require.Len(t, tools, 2)
	require.Equal(t, "scheduleEvent", tools[0].Name)
	require.Equal(t, "createTask", tools[1].Name)
}

func TestNoToolsDeclaredForOtherPersonas(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "resposta"

	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "Oi", nil))

	require.Len(t, fixture.model.calls, 1)
	require.Empty(t, fixture.model.calls[0].tools)
}

func TestSchedulingToolsCarryIntoAudioComposingCall(t *testing.T) {
	fixture := newFixture(t)
	fixture.transcriber.transcript = "marcar visita à obra segunda de manhã"
	fixture.model.response = "Agendado!"

	file := File{Name: "r.mp3", MimeType: "audio/mpeg", Reader: strings.NewReader("x")}
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDMagnolia, "", []File{file}))

	require.Len(t, fixture.model.calls, 1)
	require.Len(t, fixture.model.calls[0].tools, 2)
}

func TestAudioIgnoredForPersonasWithoutAudioFirst(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "resposta normal"

	file := File{Name: "r.mp3", MimeType: "audio/mpeg", Reader: strings.NewReader("x")}
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "ouve", []File{file}))

	require.Empty(t, fixture.transcriber.calls)
	require.Len(t, fixture.model.calls, 1)
}

func TestSingleFlightRejectsConcurrentSend(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "resposta"
	fixture.model.block = make(chan struct{})

	started := make(chan struct{})
	fixture.model.onCall = func() { close(started) }

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "primeira", nil))
	}()

	<-started
	err := fixture.orch.Send(context.Background(), persona.IDLeonor, "segunda", nil)
	require.True(t, errors.Is(err, ErrBusy))

	close(fixture.model.block)
	wg.Wait()

	// exactly one completed network turn
	require.Len(t, fixture.model.calls, 1)
	require.Len(t, fixture.messages(t, persona.IDLeonor), 3)
}

func TestDifferentPersonasRunConcurrently(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "resposta"
	fixture.model.block = make(chan struct{})

	started := make(chan struct{})
	fixture.model.onCall = func() { close(started) }

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, fixture.orch.Send(context.Background(), persona.IDLeonor, "oi", nil))
	}()

	<-started
	fixture.model.mu.Lock()
	block := fixture.model.block
	fixture.model.onCall = nil
	fixture.model.block = nil
	fixture.model.mu.Unlock()
	require.NoError(t, fixture.orch.Send(context.Background(), persona.IDAntonio, "oi", nil))

	close(block)
	wg.Wait()
}

func TestEventOrderingForAPlainTurn(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.response = "resposta"

	sink := &recordingSink{}
	orch := New(
		fixture.registry, fixture.store, fixture.model,
		fixture.transcriber, fixture.generator, fixture.editor,
		WithSink(sink),
	)
	require.NoError(t, orch.Send(context.Background(), persona.IDLeonor, "Oi", nil))

	types := []events.Type{}
	for _, event := range sink.events {
		types = append(types, event.Type)
	}
	require.Equal(t, []events.Type{
		events.TypeTurnStarted,
		events.TypeMessageAppended, // user turn
		events.TypeMessageAppended, // model reply
		events.TypeTurnCompleted,
	}, types)
	require.Equal(t, "Oi", sink.events[1].Message.Text)
}

func TestTurnFailedEventOnModelError(t *testing.T) {
	fixture := newFixture(t)
	fixture.model.err = errors.New("boom")

	sink := &recordingSink{}
	orch := New(
		fixture.registry, fixture.store, fixture.model,
		fixture.transcriber, fixture.generator, fixture.editor,
		WithSink(sink),
	)
	require.NoError(t, orch.Send(context.Background(), persona.IDLeonor, "Oi", nil))

	last := sink.events[len(sink.events)-1]
	require.Equal(t, events.TypeTurnFailed, last.Type)
	require.Equal(t, "model call", last.Detail)
}

type recordingSink struct {
	events []events.Event
}

func (s *recordingSink) PublishEvent(event events.Event) error {
	s.events = append(s.events, event)
	return nil
}

type modelCall struct {
	instruction string
	text        string
	history     []*conversation.Message
	attachments []conversation.Attachment
	tools       []services.ToolDeclaration
}

type stubModel struct {
	mu       sync.Mutex
	calls    []modelCall
	response string
	err      error
	block    chan struct{}
	onCall   func()
}

func (s *stubModel) Send(
	_ context.Context,
	instruction string,
	text string,
	history []*conversation.Message,
	attachments []conversation.Attachment,
	options ...services.SendOption,
) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, modelCall{
		instruction: instruction,
		text:        text,
		history:     history,
		attachments: attachments,
		tools:       services.NewSendConfig(options...).Tools,
	})
	onCall := s.onCall
	block := s.block
	s.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if block != nil {
		<-block
	}
	return s.response, s.err
}

type stubTranscriber struct {
	calls      []conversation.Attachment
	transcript string
	err        error
}

func (s *stubTranscriber) Transcribe(_ context.Context, attachment conversation.Attachment) (string, error) {
	s.calls = append(s.calls, attachment)
	return s.transcript, s.err
}

type stubGenerator struct {
	prompts []string
	result  *services.ImageResult
	err     error
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (*services.ImageResult, error) {
	s.prompts = append(s.prompts, prompt)
	return s.result, s.err
}

type stubEditor struct {
	result *services.ImageResult
	err    error
}

func (s *stubEditor) Edit(_ context.Context, _ string, _ []conversation.Attachment) (*services.ImageResult, error) {
	return s.result, s.err
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disco falhou")
}

type fixture struct {
	registry    *persona.Registry
	store       *conversation.StoreImpl
	model       *stubModel
	transcriber *stubTranscriber
	generator   *stubGenerator
	editor      *stubEditor
	orch        *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := persona.NewRegistry()
	store := conversation.NewStore()
	for _, p := range registry.All() {
		store.Register(p.ID, p.Greeting())
	}

	model := &stubModel{}
	transcriber := &stubTranscriber{}
	generator := &stubGenerator{}
	editor := &stubEditor{}

	return &fixture{
		registry:    registry,
		store:       store,
		model:       model,
		transcriber: transcriber,
		generator:   generator,
		editor:      editor,
		orch:        New(registry, store, model, transcriber, generator, editor),
	}
}

func (f *fixture) messages(t *testing.T, personaID string) []*conversation.Message {
	t.Helper()
	session, err := f.store.ActiveSession(personaID)
	require.NoError(t, err)
	return session.Messages
}

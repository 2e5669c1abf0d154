package cmds

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arqnb/studio/pkg/conversation"
	"github.com/arqnb/studio/pkg/events"
	"github.com/arqnb/studio/pkg/orchestrator"
	"github.com/arqnb/studio/pkg/persona"
	"github.com/arqnb/studio/pkg/services"
	"github.com/arqnb/studio/pkg/services/gemini"
	"github.com/arqnb/studio/pkg/services/openai"
)

const eventsTopic = "studio.events"

var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the advisor personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		registry, err := buildRegistry()
		if err != nil {
			return err
		}

		store := conversation.NewStore()
		for _, p := range registry.All() {
			store.Register(p.ID, p.Greeting())
		}

		model, transcriber, generator, editor, cleanup, err := buildServices(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
		defer func() {
			_ = bus.Close()
		}()

		messages, err := bus.Subscribe(ctx, eventsTopic)
		if err != nil {
			return errors.Wrap(err, "could not subscribe to event bus")
		}
		go printIncoming(messages)

		orch := orchestrator.New(
			registry, store, model, transcriber, generator, editor,
			orchestrator.WithSink(events.NewWatermillSink(bus, eventsTopic)),
		)

		return repl(ctx, registry, store, orch)
	},
}

func buildRegistry() (*persona.Registry, error) {
	registry := persona.NewRegistry()

	overridesPath := viper.GetString("personas")
	if overridesPath == "" {
		return registry, nil
	}

	f, err := os.Open(overridesPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open persona overrides %s", overridesPath)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := registry.ApplyOverrides(f); err != nil {
		return nil, err
	}
	return registry, nil
}

func buildServices(ctx context.Context) (
	services.LanguageModel,
	services.Transcriber,
	services.ImageGenerator,
	services.ImageEditor,
	func(),
	error,
) {
	switch provider := viper.GetString("provider"); provider {
	case "gemini":
		apiKey := viper.GetString("gemini-api-key")
		if apiKey == "" {
			return nil, nil, nil, nil, nil, errors.New("gemini-api-key is not set")
		}
		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		cleanup := func() {
			_ = client.Close()
		}
		return client, client, client, client, cleanup, nil

	case "openai":
		apiKey := viper.GetString("openai-api-key")
		if apiKey == "" {
			return nil, nil, nil, nil, nil, errors.New("openai-api-key is not set")
		}
		client := openai.NewClient(apiKey)
		return client, client, client, client, func() {}, nil

	default:
		return nil, nil, nil, nil, nil, errors.Errorf("unknown provider %q", provider)
	}
}

// printIncoming renders model messages as they land on the event bus, so
// the two-phase action protocols show their acknowledgement before the
// slow generation result.
func printIncoming(messages <-chan *message.Message) {
	for msg := range messages {
		event := events.Event{}
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			log.Warn().Err(err).Msg("could not decode event")
			msg.Ack()
			continue
		}
		msg.Ack()

		if event.Type != events.TypeMessageAppended || event.Message == nil {
			continue
		}
		if event.Message.Role != conversation.RoleModel {
			continue
		}
		printMessage(event.PersonaID, event.Message)
	}
}

func printMessage(personaID string, msg *conversation.Message) {
	if msg.Text != "" {
		fmt.Printf("\n[%s] %s\n", personaID, msg.Text)
	}
	if msg.Payload == nil {
		return
	}
	switch payload := msg.Payload.(type) {
	case *conversation.Image:
		fmt.Printf("[%s] <imagem: %d bytes em data URL>\n", personaID, len(payload.URL))
	case *conversation.BilingualPrompt:
		fmt.Printf("[%s] PT: %s\n[%s] EN: %s\n", personaID, payload.PT, personaID, payload.EN)
	default:
		rendered, err := json.MarshalIndent(msg.Payload, "", "  ")
		if err != nil {
			return
		}
		fmt.Printf("[%s] <%s>\n%s\n", personaID, msg.Payload.PayloadType(), rendered)
	}
}

func repl(ctx context.Context, registry *persona.Registry, store conversation.Store, orch *orchestrator.Orchestrator) error {
	active := registry.All()[0]
	pending := []orchestrator.File{}

	fmt.Println("Comandos: /persona <id>, /new, /session <n>, /attach <arquivo>, /quit")
	printSeed(store, active.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", active.ID)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit":
			return nil

		case strings.HasPrefix(line, "/persona "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/persona "))
			p, ok := registry.Get(id)
			if !ok {
				fmt.Printf("persona desconhecida: %s (disponíveis: %s)\n", id, strings.Join(registry.IDs(), ", "))
				continue
			}
			active = p
			pending = nil
			printSeed(store, active.ID)

		case line == "/new":
			if _, err := orch.NewSession(active.ID); err != nil {
				fmt.Println(err)
				continue
			}
			printSeed(store, active.ID)

		case strings.HasPrefix(line, "/session "):
			index, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/session ")))
			if err != nil {
				fmt.Println("uso: /session <n>")
				continue
			}
			if err := orch.SelectSession(active.ID, index); err != nil {
				fmt.Println(err)
			}

		case strings.HasPrefix(line, "/attach "):
			if !active.Capabilities.Attachments {
				fmt.Printf("%s não aceita anexos\n", active.Name)
				continue
			}
			path := strings.TrimSpace(strings.TrimPrefix(line, "/attach "))
			file, err := orchestrator.OpenFile(path)
			if err != nil {
				fmt.Println(err)
				continue
			}
			pending = append(pending, file)
			fmt.Printf("anexado: %s (%s)\n", file.Name, file.MimeType)

		default:
			files := pending
			pending = nil
			if err := orch.Send(ctx, active.ID, line, files); err != nil {
				fmt.Println(err)
			}
		}
	}
}

func printSeed(store conversation.Store, personaID string) {
	session, err := store.ActiveSession(personaID)
	if err != nil || len(session.Messages) == 0 {
		return
	}
	printMessage(personaID, session.Messages[0])
}

package persona

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/arqnb/studio/pkg/conversation"
)

// Registry is the immutable persona table. Lookup order is the order
// personas were defined in, which the UI uses for listing.
type Registry struct {
	order    []string
	personas map[string]*Persona
}

func NewRegistry() *Registry {
	ret := &Registry{
		personas: map[string]*Persona{},
	}
	for _, p := range defaultPersonas() {
		ret.add(p)
	}
	return ret
}

func (r *Registry) add(p *Persona) {
	if _, ok := r.personas[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.personas[p.ID] = p
}

func (r *Registry) Get(id string) (*Persona, bool) {
	p, ok := r.personas[id]
	return p, ok
}

func (r *Registry) All() []*Persona {
	ret := make([]*Persona, 0, len(r.order))
	for _, id := range r.order {
		ret = append(ret, r.personas[id])
	}
	return ret
}

func (r *Registry) IDs() []string {
	ret := make([]string, len(r.order))
	copy(ret, r.order)
	return ret
}

// personaSpec is the YAML form of a persona override. Zero-valued fields
// keep the built-in default; capabilities are replaced wholesale when the
// capabilities key is present.
type personaSpec struct {
	ID           string                    `yaml:"id"`
	Name         string                    `yaml:"name"`
	Description  string                    `yaml:"description"`
	Instruction  string                    `yaml:"instruction"`
	Greeting     string                    `yaml:"greeting"`
	Capabilities *Capabilities             `yaml:"capabilities"`
	QuickReplies []conversation.QuickReply `yaml:"quickReplies"`
}

// ApplyOverrides merges a YAML persona list into the registry. Unknown ids
// define new personas; known ids patch the defaults field by field.
func (r *Registry) ApplyOverrides(reader io.Reader) error {
	var specs []personaSpec
	if err := yaml.NewDecoder(reader).Decode(&specs); err != nil {
		return errors.Wrap(err, "could not decode persona overrides")
	}

	for _, spec := range specs {
		if spec.ID == "" {
			return errors.New("persona override without an id")
		}

		p, ok := r.personas[spec.ID]
		if !ok {
			p = &Persona{ID: spec.ID}
			r.add(p)
		}

		if spec.Name != "" {
			p.Name = spec.Name
		}
		if spec.Description != "" {
			p.Description = spec.Description
		}
		if spec.Instruction != "" {
			p.Instruction = spec.Instruction
		}
		if spec.Greeting != "" {
			p.greetingText = spec.Greeting
		}
		if spec.Capabilities != nil {
			p.Capabilities = *spec.Capabilities
		}
		if len(spec.QuickReplies) > 0 {
			p.quickReplies = spec.QuickReplies
		}

		log.Debug().Str("persona_id", spec.ID).Msg("applied persona override")
	}

	return nil
}

package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/latch/internal/surface"
)

// Scenario is one declarative activation scenario.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files are keyed
	// by it.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description,omitempty"`

	// Threshold overrides the tracker's deadline threshold. Zero
	// means the tracker default.
	Threshold uint32 `yaml:"threshold,omitempty"`

	// Steps execute in order.
	Steps []Step `yaml:"steps"`

	// Expect validates the outcome after the last step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	// Submit submits a frame for a surface.
	Submit *SubmitStep `yaml:"submit,omitempty"`

	// Resolve submits an independent (reference-free) frame for the
	// named surface, making it active. Shorthand for a bare submit.
	Resolve string `yaml:"resolve,omitempty"`

	// Tick feeds that many ticks from the source.
	Tick int `yaml:"tick,omitempty"`

	// Pause sets the tick source pause state.
	Pause *bool `yaml:"pause,omitempty"`

	// Discard destroys the named surface.
	Discard string `yaml:"discard,omitempty"`
}

// SubmitStep names the submitting surface and the surfaces its frame
// references.
type SubmitStep struct {
	Surface string   `yaml:"surface"`
	Refs    []string `yaml:"refs,omitempty"`
}

// Expect validates the end state of a scenario run.
type Expect struct {
	// Activations is the exact expected activation order.
	Activations []ExpectedActivation `yaml:"activations,omitempty"`

	// Late is the exact expected late-entity set, sorted by id.
	Late []string `yaml:"late,omitempty"`

	// Idle asserts the tracker ended with no deadline and no tick
	// subscription.
	Idle *bool `yaml:"idle,omitempty"`
}

// ExpectedActivation is one entry of the expected activation order.
type ExpectedActivation struct {
	Surface string `yaml:"surface"`
	Forced  bool   `yaml:"forced,omitempty"`
}

// Load reads, validates, and parses a scenario file. The raw document
// is checked against the embedded CUE schema first, then decoded
// strictly, so both structural mistakes and typoed fields fail with a
// useful message.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// check enforces constraints the schema cannot express conveniently.
func (s *Scenario) check() error {
	if s.Name == "" {
		return fmt.Errorf("scenario: name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q: at least one step is required", s.Name)
	}
	for i, step := range s.Steps {
		if err := step.check(); err != nil {
			return fmt.Errorf("scenario %q: step %d: %w", s.Name, i+1, err)
		}
	}
	if s.Expect != nil {
		for _, a := range s.Expect.Activations {
			if _, err := surface.ParseID(a.Surface); err != nil {
				return fmt.Errorf("scenario %q: expect: %w", s.Name, err)
			}
		}
		for _, id := range s.Expect.Late {
			if _, err := surface.ParseID(id); err != nil {
				return fmt.Errorf("scenario %q: expect: %w", s.Name, err)
			}
		}
	}
	return nil
}

func (st *Step) check() error {
	set := 0
	if st.Submit != nil {
		set++
		if _, err := surface.ParseID(st.Submit.Surface); err != nil {
			return err
		}
		for _, ref := range st.Submit.Refs {
			if _, err := surface.ParseID(ref); err != nil {
				return err
			}
		}
	}
	if st.Resolve != "" {
		set++
		if _, err := surface.ParseID(st.Resolve); err != nil {
			return err
		}
	}
	if st.Tick != 0 {
		set++
		if st.Tick < 0 {
			return fmt.Errorf("tick count must be positive, got %d", st.Tick)
		}
	}
	if st.Pause != nil {
		set++
	}
	if st.Discard != "" {
		set++
		if _, err := surface.ParseID(st.Discard); err != nil {
			return err
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of submit, resolve, tick, pause, discard must be set")
	}
	return nil
}

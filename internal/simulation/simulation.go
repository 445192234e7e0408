package simulation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ModeSimulation = "simulation"

	DefaultProvider = "simulation-provider"
	DefaultModel    = "simulation-model"
	DefaultText     = "[LLM simulation] no prepared text."
)

type Match struct {
	Role     string   `yaml:"role"`
	Contains []string `yaml:"contains"`
}

type Response struct {
	Provider string         `yaml:"provider"`
	Model    string         `yaml:"model"`
	Text     string         `yaml:"text"`
	Metadata map[string]any `yaml:"metadata"`
	Fallback []string       `yaml:"fallback"`
}

type Scenario struct {
	Name     string   `yaml:"name"`
	Match    Match    `yaml:"match"`
	Response Response `yaml:"response"`
}

type File struct {
	Mode      string     `yaml:"mode"`
	Scenarios []Scenario `yaml:"scenarios"`
	Fallback  struct {
		DefaultChain []string `yaml:"default_chain"`
	} `yaml:"fallback"`
}

// Result is a canned answer with the defaults applied.
type Result struct {
	Scenario      string
	Provider      string
	Model         string
	Text          string
	Metadata      map[string]any
	FallbackChain []string
}

// Overlay answers matching prompts from scripted scenarios instead of real
// providers. A nil or inactive Overlay never matches.
type Overlay struct {
	file File
}

// Load reads the scenario file at path. A missing file yields an inactive
// overlay.
func Load(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Overlay{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read simulation file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Overlay, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse simulation file: %w", err)
	}
	return &Overlay{file: f}, nil
}

func (o *Overlay) Active() bool {
	return o != nil && o.file.Mode == ModeSimulation
}

// Scenarios reports how many scenarios were loaded.
func (o *Overlay) Scenarios() int {
	if o == nil {
		return 0
	}
	return len(o.file.Scenarios)
}

// Match returns the first scenario matching prompt and role. A scenario role
// only filters when the request carries a role too; keywords match
// case-insensitively and any one of them is enough.
func (o *Overlay) Match(prompt, role string) (Result, bool) {
	if !o.Active() {
		return Result{}, false
	}

	lowered := strings.ToLower(prompt)
	for _, sc := range o.file.Scenarios {
		if role != "" && sc.Match.Role != "" && sc.Match.Role != role {
			continue
		}
		if len(sc.Match.Contains) > 0 && !containsAny(lowered, sc.Match.Contains) {
			continue
		}
		return o.result(sc), true
	}
	return Result{}, false
}

func (o *Overlay) result(sc Scenario) Result {
	r := Result{
		Scenario:      sc.Name,
		Provider:      sc.Response.Provider,
		Model:         sc.Response.Model,
		Text:          sc.Response.Text,
		Metadata:      sc.Response.Metadata,
		FallbackChain: sc.Response.Fallback,
	}
	if r.Provider == "" {
		r.Provider = DefaultProvider
	}
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.Text == "" {
		r.Text = DefaultText
	}
	if len(r.FallbackChain) == 0 {
		r.FallbackChain = o.file.Fallback.DefaultChain
	}
	return r
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

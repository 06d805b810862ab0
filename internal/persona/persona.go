// Package persona loads the agent's personality from PERSONA.md: a YAML
// frontmatter block (name, greeting, language) followed by the system
// prompt body.
package persona

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	FileName        = "PERSONA.md"
	DefaultGreeting = "Assistant online. Chat with me to give commands!"
	defaultName     = "blockhand"
)

const defaultBody = `You are {{name}}, a helpful assistant living in a voxel world.
Players talk to you in chat. You can move around and mine blocks for them.
Keep replies short and friendly, one or two sentences.`

const contract = `Always answer with a single JSON object and nothing else:
{"reply": "<what you say in chat>", "action": {"tool": "<tool name>", "params": {...}} }
Use "action": null when the message needs no action.
Available tools:
%s
When a player asks you to follow them, use follow; it always follows whoever asked.
Use stop when a player tells you to stop, halt or wait.`

// meta is the YAML frontmatter of PERSONA.md.
type meta struct {
	Name     string `yaml:"name"`
	Greeting string `yaml:"greeting"`
	Language string `yaml:"language"`
}

// Persona is one parsed PERSONA.md.
type Persona struct {
	Name     string
	Greeting string
	Language string
	Body     string
}

// Default is the persona used when no file exists.
func Default() Persona {
	return Persona{Name: defaultName, Greeting: DefaultGreeting, Body: defaultBody}
}

// Parse reads frontmatter and body. Missing fields take the defaults.
func Parse(content string) (Persona, error) {
	p := Default()
	front, body, ok := splitFrontmatter(content)
	if ok {
		var m meta
		if err := yaml.Unmarshal([]byte(front), &m); err != nil {
			return Persona{}, fmt.Errorf("persona frontmatter: %w", err)
		}
		if m.Name != "" {
			p.Name = m.Name
		}
		if m.Greeting != "" {
			p.Greeting = m.Greeting
		}
		p.Language = m.Language
	}
	if b := strings.TrimSpace(body); b != "" {
		p.Body = b
	}
	return p, nil
}

// splitFrontmatter separates a leading --- ... --- block from the rest.
func splitFrontmatter(content string) (front, body string, ok bool) {
	content = strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(content, "---") {
		return "", content, false
	}
	rest := strings.TrimLeft(content[3:], " \t")
	rest = strings.TrimPrefix(strings.TrimPrefix(rest, "\r"), "\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", content, false
	}
	front = rest[:end]
	body = rest[end+len("\n---"):]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return front, body, true
}

// Render writes p back in file form.
func (p Persona) Render() string {
	m := meta{Name: p.Name, Greeting: p.Greeting, Language: p.Language}
	b, _ := yaml.Marshal(m)
	return "---\n" + string(b) + "---\n\n" + p.Body + "\n"
}

// Store serves the current persona and reloads it from disk.
type Store struct {
	path    string
	catalog string
	log     *zap.Logger

	mu      sync.RWMutex
	current Persona
}

// Load reads path. A missing file yields the default persona; an
// unparsable one is an error.
func Load(path, catalog string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, catalog: catalog, log: logger, current: Default()}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the file. On error the previous persona stays in effect.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.set(Default())
		return nil
	}
	if err != nil {
		return fmt.Errorf("read persona: %w", err)
	}
	p, err := Parse(string(data))
	if err != nil {
		return err
	}
	s.set(p)
	return nil
}

func (s *Store) set(p Persona) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}

func (s *Store) Path() string { return s.path }

func (s *Store) Persona() Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Greeting() string { return s.Persona().Greeting }

// SystemPrompt is the persona body followed by the reply contract and the
// tool catalog.
func (s *Store) SystemPrompt() string {
	p := s.Persona()
	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(p.Body, "{{name}}", p.Name))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, contract, strings.TrimRight(s.catalog, "\n"))
	if p.Language != "" {
		fmt.Fprintf(&sb, "\nWrite the reply in %s.", p.Language)
	}
	return sb.String()
}

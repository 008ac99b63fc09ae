package play

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
)

var (
	// ErrNotUnlocked is returned when a player combines an element they do not own yet
	ErrNotUnlocked = goerr.New("element is not unlocked")
)

// Resolver resolves a pair of element names
type Resolver interface {
	Resolve(ctx context.Context, a, b string) *model.Outcome
}

// Session is one player's game: the elements unlocked so far and where they are saved
type Session struct {
	resolver Resolver
	savePath string

	mu       sync.Mutex
	unlocked []model.Element
}

type Option func(*Session)

// WithSaveFile persists unlocked elements to path after every discovery
func WithSaveFile(path string) Option {
	return func(s *Session) {
		s.savePath = path
	}
}

// saveData is the save file layout, shared with the browser front-end
type saveData struct {
	Unlocked []model.Element `json:"unlocked"`
}

// New starts a session. An existing save file is loaded; otherwise the player
// starts with the default elements and a new save file is written.
func New(resolver Resolver, opts ...Option) (*Session, error) {
	s := &Session{resolver: resolver}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := s.load()
	if err != nil {
		return nil, err
	}
	if loaded {
		return s, nil
	}

	defaults, err := model.DefaultElements()
	if err != nil {
		return nil, err
	}
	s.unlocked = defaults
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) load() (bool, error) {
	if s.savePath == "" {
		return false, nil
	}

	raw, err := os.ReadFile(s.savePath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to read save file", goerr.V("path", s.savePath))
	}

	var data saveData
	if err := json.Unmarshal(raw, &data); err != nil {
		return false, goerr.Wrap(err, "failed to parse save file", goerr.V("path", s.savePath))
	}
	if data.Unlocked == nil {
		return false, nil
	}

	for i := range data.Unlocked {
		if err := data.Unlocked[i].Validate(); err != nil {
			return false, goerr.Wrap(err, "invalid element in save file",
				goerr.V("path", s.savePath),
				goerr.V("index", i))
		}
	}

	s.unlocked = data.Unlocked
	return true, nil
}

func (s *Session) save() error {
	if s.savePath == "" {
		return nil
	}

	raw, err := json.Marshal(saveData{Unlocked: s.unlocked})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal save data")
	}

	if dir := filepath.Dir(s.savePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return goerr.Wrap(err, "failed to create save directory", goerr.V("dir", dir))
		}
	}

	tmp := s.savePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return goerr.Wrap(err, "failed to write save file", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, s.savePath); err != nil {
		return goerr.Wrap(err, "failed to replace save file", goerr.V("path", s.savePath))
	}
	return nil
}

// Unlocked returns a copy of the unlocked elements in discovery order
func (s *Session) Unlocked() []model.Element {
	s.mu.Lock()
	defer s.mu.Unlock()

	elements := make([]model.Element, len(s.unlocked))
	copy(elements, s.unlocked)
	return elements
}

// Lookup finds an unlocked element by name, ignoring case
func (s *Session) Lookup(name string) (model.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(name)
}

func (s *Session) lookup(name string) (model.Element, bool) {
	name = strings.TrimSpace(name)
	for _, e := range s.unlocked {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return model.Element{}, false
}

// Result is what a player sees after combining two elements
type Result struct {
	Outcome *model.Outcome

	// Discovered is true when the element was added to the player's list
	Discovered bool
}

// Combine resolves two unlocked elements and unlocks the result
func (s *Session) Combine(ctx context.Context, a, b string) (*Result, error) {
	s.mu.Lock()
	elemA, okA := s.lookup(a)
	elemB, okB := s.lookup(b)
	s.mu.Unlock()

	if !okA {
		return nil, goerr.Wrap(ErrNotUnlocked, "cannot combine", goerr.V("name", a))
	}
	if !okB {
		return nil, goerr.Wrap(ErrNotUnlocked, "cannot combine", goerr.V("name", b))
	}

	outcome := s.resolver.Resolve(ctx, elemA.Name, elemB.Name)
	result := &Result{Outcome: outcome}
	if !outcome.OK() {
		return result, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lookup(outcome.Combination.Name); exists {
		return result, nil
	}

	s.unlocked = append(s.unlocked, outcome.Combination.Element())
	result.Discovered = true
	if err := s.save(); err != nil {
		return result, err
	}
	return result, nil
}

// ParseInput splits "A + B" or "A,B" into two names
func ParseInput(line string) (string, string, bool) {
	for _, sep := range []string{"+", ","} {
		if a, b, found := strings.Cut(line, sep); found {
			a, b = strings.TrimSpace(a), strings.TrimSpace(b)
			if a == "" || b == "" {
				return "", "", false
			}
			return a, b, true
		}
	}
	return "", "", false
}

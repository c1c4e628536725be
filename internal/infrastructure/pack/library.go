package pack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
)

// Library serves packages stored as <name>.json under a directory. Parsed
// packages are cached; every engine gets its own navigation state.
type Library struct {
	dir    string
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*Package
}

// NewLibrary creates a library rooted at dir.
func NewLibrary(dir string, logger zerolog.Logger) *Library {
	return &Library{
		dir:    dir,
		logger: logger.With().Str("service", "pack_library").Logger(),
		cache:  make(map[string]*Package),
	}
}

// List returns the names of the available packages.
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Load returns the parsed package called name.
func (l *Library) Load(name string) (*Package, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: %q", ErrPackNotFound, name)
	}
	l.mu.RLock()
	p, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return p, nil
	}

	data, err := os.ReadFile(filepath.Join(l.dir, name+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrPackNotFound, name)
		}
		return nil, err
	}
	p, err = Parse(data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[name] = p
	l.mu.Unlock()
	l.logger.Info().Str("package", name).Int("rounds", len(p.Rounds)).Msg("package loaded")
	return p, nil
}

// NewEngine creates a fresh engine over the named package.
func (l *Library) NewEngine(name string) (rules.Engine, error) {
	p, err := l.Load(name)
	if err != nil {
		return nil, err
	}
	return NewEngine(p, l.logger), nil
}

// EngineFromJSON creates an engine over an inline package.
func (l *Library) EngineFromJSON(data []byte) (rules.Engine, error) {
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return NewEngine(p, l.logger), nil
}

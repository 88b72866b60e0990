package synonyms

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/fields"
	"github.com/sumanths012/SymptoSense/internal/repository"
)

// Source produces a complete synonym catalog.
type Source interface {
	Name() string
	Load(ctx context.Context) (fields.SynonymSet, error)
}

type builtinSource struct{}

// BuiltinSource serves the compiled-in default labels.
func BuiltinSource() Source { return builtinSource{} }

func (builtinSource) Name() string { return "builtin" }

func (builtinSource) Load(context.Context) (fields.SynonymSet, error) {
	return fields.DefaultSynonyms(), nil
}

// FileSource reads a catalog file on every Load.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Load(context.Context) (fields.SynonymSet, error) {
	return LoadFile(s.Path)
}

// RepositorySource reads the catalog table. An empty table falls back to the defaults.
type RepositorySource struct {
	Repo repository.SynonymRepository
}

func (s RepositorySource) Name() string { return "database" }

func (s RepositorySource) Load(ctx context.Context) (fields.SynonymSet, error) {
	m, err := s.Repo.ListAll(ctx)
	if err != nil {
		return fields.SynonymSet{}, err
	}
	if len(m) == 0 {
		return fields.DefaultSynonyms(), nil
	}
	return fields.NewSynonymSet(m), nil
}

// Snapshot is one immutable generation of the catalog.
type Snapshot struct {
	Extractor *fields.Extractor
	Source    string
	LoadedAt  time.Time
	Version   uint64
}

// Store holds the catalog in force. Readers take a snapshot per request; Reload swaps it atomically.
type Store struct {
	source  Source
	policy  fields.MatchPolicy
	current atomic.Pointer[Snapshot]
	version atomic.Uint64
	logger  *slog.Logger
}

// NewStore loads source once; a failing initial load is an error.
func NewStore(ctx context.Context, source Source, policy fields.MatchPolicy, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if source == nil {
		source = BuiltinSource()
	}
	s := &Store{source: source, policy: policy, logger: logger}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore wraps a fixed set. Reload re-applies the same set.
func NewStaticStore(set fields.SynonymSet, policy fields.MatchPolicy) *Store {
	s := &Store{source: staticSource{set: set}, policy: policy, logger: slog.Default()}
	s.install(set)
	return s
}

type staticSource struct{ set fields.SynonymSet }

func (staticSource) Name() string { return "static" }

func (s staticSource) Load(context.Context) (fields.SynonymSet, error) { return s.set, nil }

// Snapshot returns the catalog generation currently in force.
func (s *Store) Snapshot() *Snapshot { return s.current.Load() }

// Extractor is shorthand for Snapshot().Extractor.
func (s *Store) Extractor() *fields.Extractor { return s.current.Load().Extractor }

// Reload re-reads the source. On failure the previous snapshot stays in force.
func (s *Store) Reload(ctx context.Context) error {
	start := time.Now()
	set, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error("synonyms.reload.failed", "source", s.source.Name(), "error", err)
		return fmt.Errorf("load synonyms from %s: %w", s.source.Name(), err)
	}
	if set.Len() == 0 {
		s.logger.Error("synonyms.reload.empty", "source", s.source.Name())
		return fmt.Errorf("load synonyms from %s: catalog is empty", s.source.Name())
	}
	snap := s.install(set)
	s.logger.Info("synonyms.reload.ok",
		"source", snap.Source,
		"version", snap.Version,
		"categories", set.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Store) install(set fields.SynonymSet) *Snapshot {
	snap := &Snapshot{
		Extractor: fields.NewExtractor(set, s.policy),
		Source:    s.source.Name(),
		LoadedAt:  time.Now().UTC(),
		Version:   s.version.Add(1),
	}
	s.current.Store(snap)
	return snap
}

// Categories lists the categories of the current snapshot.
func (s *Store) Categories() []constants.Category {
	return s.Extractor().Synonyms().Categories()
}

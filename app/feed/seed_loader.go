package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SeedLoader reads feed declarations from *.yml files in a directory.
type SeedLoader struct {
	feedsDir string
	cache    map[string]*Seed
	mu       sync.RWMutex
}

func NewSeedLoader(feedsDir string) *SeedLoader {
	return &SeedLoader{
		feedsDir: feedsDir,
		cache:    make(map[string]*Seed),
	}
}

func (sl *SeedLoader) Run() error {
	if _, err := os.Stat(sl.feedsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(sl.feedsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		seed, err := sl.LoadSeed(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Feed seed loaded", "feed", name, "url", seed.URL)
	}

	return nil
}

func (sl *SeedLoader) LoadSeed(name string) (*Seed, error) {
	seedFile := filepath.Join(sl.feedsDir, name+".yml")

	data, err := os.ReadFile(seedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	seed.Name = name
	seed.URL = strings.TrimSpace(seed.URL)

	if seed.URL == "" {
		return nil, fmt.Errorf("invalid seed %s: feed URL is required", seedFile)
	}
	if seed.Title == "" {
		seed.Title = name
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.cache[name] = &seed

	return &seed, nil
}

// GetSeeds returns the loaded seeds ordered by name.
func (sl *SeedLoader) GetSeeds() []Seed {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	seeds := make([]Seed, 0, len(sl.cache))
	for _, s := range sl.cache {
		seeds = append(seeds, *s)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].Name < seeds[j].Name })
	return seeds
}

func (sl *SeedLoader) GetSeedCount() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return len(sl.cache)
}

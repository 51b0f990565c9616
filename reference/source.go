package reference

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"
)

// Source supplies the known-good values of a reference table.
type Source interface {
	Names(ctx context.Context, table string) ([]string, error)
}

// KnownSet maps lower-cased names to their canonical spelling.
type KnownSet map[string]string

// NewKnownSet indexes names case-insensitively; the first spelling of a name wins.
func NewKnownSet(names []string) KnownSet {
	known := make(KnownSet, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" {
			continue
		}
		if _, exists := known[key]; !exists {
			known[key] = strings.TrimSpace(n)
		}
	}
	return known
}

// Keys lists the lower-cased names in sorted order.
func (k KnownSet) Keys() []string {
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// StaticSource serves the same values for every table.
type StaticSource struct {
	names []string
}

func NewStaticSource(names []string) *StaticSource {
	return &StaticSource{names: append([]string(nil), names...)}
}

// LoadFile reads one value per line, skipping blank lines and # comments.
func LoadFile(path string) (*StaticSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewStaticSource(names), nil
}

func (s *StaticSource) Names(_ context.Context, _ string) ([]string, error) {
	return append([]string(nil), s.names...), nil
}

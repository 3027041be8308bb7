// Package schoolref resolves (lgaCode, schoolCode) pairs against the static
// school-reference dataset shipped as a JSON file. The dataset is read-only
// from the portal's point of view; it is cached in memory with a TTL and an
// explicit Invalidate for when an admin swaps the file.
package schoolref

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dubyyy/delta-state-result-checker-sub000/numbering"
)

// Record is one dataset row.
type Record struct {
	LgaCode    string `json:"lga_code"`
	LgaDigits  string `json:"lga_digits"`
	SchoolCode string `json:"school_code"`
	SchoolName string `json:"school_name"`
}

type key struct {
	lga    string
	school string
}

// Service loads and caches the dataset. Construct one per process and inject
// it where needed; there is no package-level instance.
type Service struct {
	path string
	ttl  time.Duration

	mu       sync.RWMutex
	byKey    map[key]Record
	loadedAt time.Time
}

// New returns a Service reading the dataset at path. The file is loaded
// lazily on first resolve and reloaded once ttl has passed. ttl <= 0 means
// reload only via Invalidate.
func New(path string, ttl time.Duration) *Service {
	return &Service{path: path, ttl: ttl}
}

// Resolve implements numbering.Resolver.
func (s *Service) Resolve(lgaCode, schoolCode string) (numbering.Prefix, error) {
	rec, err := s.Lookup(lgaCode, schoolCode)
	if err != nil {
		return numbering.Prefix{}, err
	}
	return numbering.Prefix{LGADigits: rec.LgaDigits, SchoolCode: rec.SchoolCode}, nil
}

// Lookup returns the full dataset record for a school, or
// numbering.ErrNotFound when the pair has no entry.
func (s *Service) Lookup(lgaCode, schoolCode string) (Record, error) {
	if err := s.ensureFresh(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	rec, ok := s.byKey[normKey(lgaCode, schoolCode)]
	s.mu.RUnlock()
	if !ok {
		return Record{}, numbering.ErrNotFound
	}
	return rec, nil
}

// Invalidate drops the cache; the next lookup rereads the file. Call after
// replacing the dataset on disk.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.byKey = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Service) ensureFresh() error {
	s.mu.RLock()
	fresh := s.byKey != nil && (s.ttl <= 0 || time.Since(s.loadedAt) < s.ttl)
	s.mu.RUnlock()
	if fresh {
		return nil
	}
	return s.reload()
}

func (s *Service) reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("schoolref: read dataset: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("schoolref: parse dataset: %w", err)
	}

	byKey := make(map[key]Record, len(records))
	for _, r := range records {
		byKey[normKey(r.LgaCode, r.SchoolCode)] = r
	}

	s.mu.Lock()
	s.byKey = byKey
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func normKey(lga, school string) key {
	return key{
		lga:    strings.ToUpper(strings.TrimSpace(lga)),
		school: strings.TrimLeft(strings.TrimSpace(school), "0"),
	}
}

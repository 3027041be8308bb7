// Package codegen mints the portal's unique identifiers: school access PINs
// and the 10-digit account codes attached to every student registration.
// Codes are random, fixed-format, and checked against the backing store with
// a bounded generate-check-retry loop.
package codegen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	// PinAlphabet leaves out 0/O/1/I so PINs survive being read over the phone.
	PinAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	PinLength   = 12

	// MinBatchSize and MaxBatchSize bound a single admin generation request.
	MinBatchSize = 1
	MaxBatchSize = 1000

	accCodeMin = 1_000_000_000
	accCodeMax = 9_999_999_999

	// maxAttempts bounds the per-code retry loop. Collisions are astronomically
	// unlikely in the full code space; the cap exists so a near-exhausted or
	// misbehaving store cannot hang a request.
	maxAttempts = 10

	// maxBatchAttempts bounds the generate-candidates / single-filter-query
	// cycle of the batch operations.
	maxBatchAttempts = 3
)

var (
	// ErrGenerationExhausted means the retry bound was hit before a free code
	// was found. Callers must treat this as fatal for the whole operation:
	// never persist a record with a missing or partial identifier.
	ErrGenerationExhausted = errors.New("codegen: attempt bound exhausted before a unique code could be generated")

	// ErrBatchSize rejects an out-of-range batch count before any store I/O.
	ErrBatchSize = fmt.Errorf("codegen: batch count must be between %d and %d", MinBatchSize, MaxBatchSize)
)

// Checker is the read side of the uniqueness store.
type Checker interface {
	// Exists reports whether code is already taken.
	Exists(code string) (bool, error)
	// FilterExisting returns the subset of codes that are already taken,
	// in a single store round-trip.
	FilterExisting(codes []string) (map[string]struct{}, error)
}

// Store adds the durable-reservation insert used for PINs. InsertIfAbsent
// must be atomic (unique-constraint backed): two concurrent callers drawing
// the same candidate must not both win it.
type Store interface {
	Checker
	InsertIfAbsent(code string) (bool, error)
}

// PinGenerator produces access PINs against a Store. Alphabet and Length
// default to the portal format; tests shrink them to force collisions.
type PinGenerator struct {
	Alphabet string
	Length   int

	store Store
}

func NewPinGenerator(store Store) *PinGenerator {
	return &PinGenerator{Alphabet: PinAlphabet, Length: PinLength, store: store}
}

// Generate mints one PIN and durably reserves it in the store. The insert
// doubles as the uniqueness check: on a duplicate it redraws, up to the
// attempt bound.
func (g *PinGenerator) Generate() (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := g.randomCode()
		if err != nil {
			return "", err
		}
		inserted, err := g.store.InsertIfAbsent(code)
		if err != nil {
			return "", err
		}
		if inserted {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted
}

// GenerateBatch mints count PINs for an admin generation run. Candidates are
// deduplicated locally and screened with one FilterExisting call per cycle,
// so the store sees O(1) existence queries per cycle rather than one per PIN.
// Each surviving candidate is still reserved individually via InsertIfAbsent,
// keeping the single-generate race guarantee.
//
// On exhaustion the PINs reserved so far are returned alongside
// ErrGenerationExhausted so the caller can report the shortfall.
func (g *PinGenerator) GenerateBatch(count int) ([]string, error) {
	if count < MinBatchSize || count > MaxBatchSize {
		return nil, ErrBatchSize
	}

	stored := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	for attempt := 0; attempt < maxBatchAttempts && len(stored) < count; attempt++ {
		candidates, err := drawCandidates(count-len(stored), seen, g.randomCode)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			break
		}
		taken, err := g.store.FilterExisting(candidates)
		if err != nil {
			return nil, err
		}
		for _, code := range candidates {
			if _, dup := taken[code]; dup {
				continue
			}
			inserted, err := g.store.InsertIfAbsent(code)
			if err != nil {
				return nil, err
			}
			if inserted {
				stored = append(stored, code)
			}
		}
	}

	if len(stored) < count {
		return stored, ErrGenerationExhausted
	}
	return stored, nil
}

func (g *PinGenerator) randomCode() (string, error) {
	return randomFromAlphabet(g.Alphabet, g.Length)
}

// GenerateAccCode draws one 10-digit account code and verifies it is free in
// the registration namespace (regular and late tables together). Unlike PINs
// the code is not reserved here; the caller persists it as part of the
// registration record.
func GenerateAccCode(store Checker) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := randomAccCode()
		if err != nil {
			return "", err
		}
		taken, err := store.Exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted
}

// GenerateAccCodeBatch mints count account codes for a school-submission
// event. Local duplicates among the random draws are redrawn via a set, then
// the whole candidate batch is screened with a single FilterExisting query.
// Registration batches run to the hundreds, so collapsing the per-code
// existence checks into one round-trip per cycle is the point of this path.
func GenerateAccCodeBatch(store Checker, count int) ([]string, error) {
	if count < MinBatchSize || count > MaxBatchSize {
		return nil, ErrBatchSize
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	for attempt := 0; attempt < maxBatchAttempts && len(codes) < count; attempt++ {
		candidates, err := drawCandidates(count-len(codes), seen, randomAccCode)
		if err != nil {
			return nil, err
		}
		taken, err := store.FilterExisting(candidates)
		if err != nil {
			return nil, err
		}
		for _, code := range candidates {
			if _, dup := taken[code]; dup {
				continue
			}
			codes = append(codes, code)
		}
	}

	if len(codes) < count {
		return nil, ErrGenerationExhausted
	}
	return codes, nil
}

// drawCandidates collects need codes distinct from everything in seen,
// recording them in seen as it goes. The draw count is capped so a shrunken
// test alphabet (or an exhausted space) cannot spin forever; the outer batch
// loop owns the retry bound.
func drawCandidates(need int, seen map[string]struct{}, draw func() (string, error)) ([]string, error) {
	candidates := make([]string, 0, need)
	for draws := 0; len(candidates) < need && draws < need*maxAttempts; draws++ {
		code, err := draw()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		candidates = append(candidates, code)
	}
	return candidates, nil
}

// RandomCode draws a random string over alphabet. Used outside the
// uniqueness-checked paths, e.g. one-time staff passwords.
func RandomCode(alphabet string, length int) (string, error) {
	return randomFromAlphabet(alphabet, length)
}

func randomFromAlphabet(alphabet string, length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("codegen: read random bytes: %w", err)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf), nil
}

func randomAccCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(accCodeMax-accCodeMin+1))
	if err != nil {
		return "", fmt.Errorf("codegen: read random int: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+accCodeMin), nil
}

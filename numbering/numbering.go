// Package numbering computes the student-facing registration numbers printed
// on rosters. A number is {lgaDigits}{schoolCode padded to 3}{sequence of 4},
// where the sequence is either the student's alphabetical surname rank
// (while a school's registration window is open) or an appended counter
// (after the window closes).
package numbering

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SequenceWidth is the zero-padded width of the trailing sequence digits.
const SequenceWidth = 4

// ErrNotFound reports that the (lgaCode, schoolCode) pair has no entry in the
// school-reference dataset. Numbering never fabricates a prefix: regular-mode
// recompute becomes a no-op and late-mode assignment falls back to the raw
// inputs. Either way the caller must surface the miss as a data-integrity
// warning rather than swallow it.
var ErrNotFound = errors.New("numbering: school reference not found")

// Prefix is the resolved school-level component of a student number.
type Prefix struct {
	LGADigits  string
	SchoolCode string
}

func (p Prefix) String() string {
	return p.LGADigits + PadSchoolCode(p.SchoolCode)
}

// PadSchoolCode zero-pads a school code to 3 digits. Codes already 3 digits
// or longer pass through unchanged.
func PadSchoolCode(code string) string {
	code = strings.TrimSpace(code)
	for len(code) < 3 {
		code = "0" + code
	}
	return code
}

// Resolver maps a (lgaCode, schoolCode) pair to its numbering prefix via the
// external school-reference dataset. Implementations return ErrNotFound when
// the pair has no entry.
type Resolver interface {
	Resolve(lgaCode, schoolCode string) (Prefix, error)
}

// NumberStore lists every student number already assigned for a school,
// across both the regular-registration and late-registration tables.
type NumberStore interface {
	ListStudentNumbers(lgaCode, schoolCode string) ([]string, error)
}

// Entry is one roster line as the engine sees it: just enough to rank the
// student and hand the assigned number back to the caller.
type Entry struct {
	ID      uint
	Surname string
	Number  string
}

// Engine computes student numbers for one registration cycle. It is
// stateless; every call works from a fresh roster snapshot or store scan.
type Engine struct {
	refs  Resolver
	store NumberStore
}

func NewEngine(refs Resolver, store NumberStore) *Engine {
	return &Engine{refs: refs, store: store}
}

// NormalizeSurname applies the canonical surname form used for ranking:
// trimmed and uppercased.
func NormalizeSurname(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Recompute assigns regular-mode numbers to the full roster of a school.
// The sequence digits are the 1-based rank of each student's normalized
// surname within the sorted set of distinct surnames, so students sharing a
// surname share a number; the account code, not the student number, is the
// per-student unique identifier.
//
// Ranks are positional: adding, renaming, or removing a single surname can
// shift every rank after it, so callers must re-run Recompute over the whole
// current roster on any change while registration is open. Incremental
// patching of individual numbers is never correct.
//
// If the school reference does not resolve, the input is returned unchanged
// together with ErrNotFound.
func (e *Engine) Recompute(lgaCode, schoolCode string, entries []Entry) ([]Entry, error) {
	prefix, err := e.refs.Resolve(lgaCode, schoolCode)
	if err != nil {
		return entries, err
	}

	set := make(map[string]struct{}, len(entries))
	for _, en := range entries {
		set[NormalizeSurname(en.Surname)] = struct{}{}
	}
	surnames := make([]string, 0, len(set))
	for s := range set {
		surnames = append(surnames, s)
	}
	sort.Strings(surnames)

	rank := make(map[string]int, len(surnames))
	for i, s := range surnames {
		rank[s] = i + 1
	}

	out := make([]Entry, len(entries))
	for i, en := range entries {
		out[i] = en
		out[i].Number = fmt.Sprintf("%s%0*d", prefix, SequenceWidth, rank[NormalizeSurname(en.Surname)])
	}
	return out, nil
}

// NextNumber assigns a late-mode number: the school's prefix plus one past
// the highest sequence already on record in either registration table.
// An empty record set starts at 0001.
//
// When the school reference does not resolve, the prefix is rebuilt from the
// raw inputs (digits of lgaCode, padded schoolCode) and ErrNotFound is
// returned alongside the still-usable number so the caller can log the miss.
//
// This is a read-then-assign without a reservation: two concurrent late
// registrations for the same school can compute the same sequence. Callers
// that need to close the race should serialize per school, e.g. by calling
// inside a transaction that locks the school row.
func (e *Engine) NextNumber(lgaCode, schoolCode string) (string, error) {
	prefix, refErr := e.refs.Resolve(lgaCode, schoolCode)
	if refErr != nil {
		prefix = Prefix{LGADigits: digitsOf(lgaCode), SchoolCode: schoolCode}
	}

	numbers, err := e.store.ListStudentNumbers(lgaCode, schoolCode)
	if err != nil {
		return "", err
	}

	max := 0
	for _, n := range numbers {
		if len(n) < SequenceWidth {
			continue
		}
		seq, err := strconv.Atoi(n[len(n)-SequenceWidth:])
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}

	return fmt.Sprintf("%s%0*d", prefix, SequenceWidth, max+1), refErr
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package numbering

import (
	"errors"
	"reflect"
	"testing"
)

type stubResolver struct {
	prefixes map[string]Prefix
}

func (r *stubResolver) Resolve(lgaCode, schoolCode string) (Prefix, error) {
	p, ok := r.prefixes[lgaCode+"/"+schoolCode]
	if !ok {
		return Prefix{}, ErrNotFound
	}
	return p, nil
}

type stubNumberStore struct {
	numbers []string
	calls   int
}

func (s *stubNumberStore) ListStudentNumbers(lgaCode, schoolCode string) ([]string, error) {
	s.calls++
	return s.numbers, nil
}

func testEngine(numbers ...string) (*Engine, *stubNumberStore) {
	refs := &stubResolver{prefixes: map[string]Prefix{
		"DT-03/45": {LGADigits: "3", SchoolCode: "45"},
	}}
	store := &stubNumberStore{numbers: numbers}
	return NewEngine(refs, store), store
}

func numbersOf(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Number
	}
	return out
}

func TestRecompute_AlphabeticalRanks(t *testing.T) {
	engine, _ := testEngine()

	entries := []Entry{
		{ID: 1, Surname: "Smith"},
		{ID: 2, Surname: "Adams"},
		{ID: 3, Surname: "Smith"},
		{ID: 4, Surname: "Zed"},
	}
	got, err := engine.Recompute("DT-03", "45", entries)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	// unique sorted set is [ADAMS SMITH ZED]: Adams=1, both Smiths=2, Zed=3
	want := []string{"30450002", "30450001", "30450002", "30450003"}
	if !reflect.DeepEqual(numbersOf(got), want) {
		t.Errorf("numbers = %v, want %v", numbersOf(got), want)
	}

	// idempotence: same roster, same numbers
	again, err := engine.Recompute("DT-03", "45", got)
	if err != nil {
		t.Fatalf("second Recompute: %v", err)
	}
	if !reflect.DeepEqual(numbersOf(again), want) {
		t.Errorf("recompute is not idempotent: %v, want %v", numbersOf(again), want)
	}
}

// Inserting a surname that sorts first must shift every later rank: the
// recompute is global, never additive.
func TestRecompute_RankShiftOnInsert(t *testing.T) {
	engine, _ := testEngine()

	before, err := engine.Recompute("DT-03", "45", []Entry{
		{ID: 1, Surname: "Smith"},
		{ID: 2, Surname: "Zed"},
	})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got, want := numbersOf(before), []string{"30450001", "30450002"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("before = %v, want %v", got, want)
	}

	after, err := engine.Recompute("DT-03", "45", append(before, Entry{ID: 3, Surname: "Adams"}))
	if err != nil {
		t.Fatalf("Recompute after insert: %v", err)
	}
	if got, want := numbersOf(after), []string{"30450002", "30450003", "30450001"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after = %v, want %v", got, want)
	}
}

func TestRecompute_NormalizesSurnames(t *testing.T) {
	engine, _ := testEngine()

	got, err := engine.Recompute("DT-03", "45", []Entry{
		{ID: 1, Surname: "  adams "},
		{ID: 2, Surname: "ADAMS"},
	})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got[0].Number != got[1].Number {
		t.Errorf("case/space variants of one surname got different numbers: %q vs %q",
			got[0].Number, got[1].Number)
	}
	if got[0].Number != "30450001" {
		t.Errorf("number = %q, want 30450001", got[0].Number)
	}
}

// Unresolvable school reference: the roster passes through untouched and the
// caller gets ErrNotFound to surface.
func TestRecompute_NoOpWithoutReference(t *testing.T) {
	engine, _ := testEngine()

	in := []Entry{{ID: 1, Surname: "Okoro", Number: "99990005"}}
	got, err := engine.Recompute("XX-99", "7", in)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("entries changed on a no-op recompute: %v", got)
	}
}

// The max scan spans both tables: with 0007 in the regular table and 0009 in
// the late table, the next number must end 0010.
func TestNextNumber_CrossTableMonotonicity(t *testing.T) {
	engine, store := testEngine("30450007", "30450009")

	got, err := engine.NextNumber("DT-03", "45")
	if err != nil {
		t.Fatalf("NextNumber: %v", err)
	}
	if got != "30450010" {
		t.Errorf("number = %q, want 30450010", got)
	}
	if store.calls != 1 {
		t.Errorf("store scans = %d, want 1", store.calls)
	}
}

func TestNextNumber_StartsAtOne(t *testing.T) {
	engine, _ := testEngine()

	got, err := engine.NextNumber("DT-03", "45")
	if err != nil {
		t.Fatalf("NextNumber: %v", err)
	}
	if got != "30450001" {
		t.Errorf("number = %q, want 30450001", got)
	}
}

func TestNextNumber_FallbackPrefix(t *testing.T) {
	engine, _ := testEngine()

	got, err := engine.NextNumber("XX-99", "7")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound alongside the fallback number", err)
	}
	// digits of "XX-99" + school code padded to 3 + first sequence
	if got != "990070001" {
		t.Errorf("number = %q, want 990070001", got)
	}
}

// End-to-end scenario: roster {OKORO, ADAMS}, then Bello registers.
func TestRecompute_EndToEndScenario(t *testing.T) {
	engine, _ := testEngine()

	roster := []Entry{
		{ID: 1, Surname: "Okoro"},
		{ID: 2, Surname: "Adams"},
	}
	roster, err := engine.Recompute("DT-03", "45", roster)
	if err != nil {
		t.Fatalf("initial Recompute: %v", err)
	}

	roster = append(roster, Entry{ID: 3, Surname: "Bello"})
	got, err := engine.Recompute("DT-03", "45", roster)
	if err != nil {
		t.Fatalf("Recompute after Bello: %v", err)
	}

	byID := map[uint]string{}
	for _, e := range got {
		byID[e.ID] = e.Number
	}
	if byID[2] != "30450001" {
		t.Errorf("Adams = %q, want 30450001", byID[2])
	}
	if byID[3] != "30450002" {
		t.Errorf("Bello = %q, want 30450002", byID[3])
	}
	if byID[1] != "30450003" {
		t.Errorf("Okoro = %q, want 30450003", byID[1])
	}
}

func TestPadSchoolCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"45", "045"},
		{"5", "005"},
		{"123", "123"},
		{"1234", "1234"},
		{" 45 ", "045"},
	}
	for _, tt := range tests {
		if got := PadSchoolCode(tt.in); got != tt.want {
			t.Errorf("PadSchoolCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

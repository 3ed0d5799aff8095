package payload

import (
	"strings"
	"testing"
)

func stripWhitespace(s string) string {
	return strings.NewReplacer(" ", "", "\n", "", "\t", "").Replace(s)
}

func TestExtractObjectWithSurroundingProse(t *testing.T) {
	t.Parallel()

	text := `Here is your roadmap: {"a":1,"b":[2,3]} hope it helps!`
	pretty, ok := Extract(text)
	if !ok {
		t.Fatal("expected a payload")
	}
	if got := stripWhitespace(pretty); got != `{"a":1,"b":[2,3]}` {
		t.Fatalf("extracted payload = %q", got)
	}
	if !strings.Contains(pretty, "\n") {
		t.Error("payload should be pretty-printed")
	}
}

func TestExtractNoBraces(t *testing.T) {
	t.Parallel()

	if _, ok := Extract("no braces here"); ok {
		t.Fatal("expected no payload")
	}
}

func TestExtractReversedBraces(t *testing.T) {
	t.Parallel()

	if _, ok := Extract("} backwards {"); ok {
		t.Fatal("expected no payload for a closing brace before the opening one")
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	t.Parallel()

	if _, ok := Extract("config is {not: valid json}"); ok {
		t.Fatal("expected no payload for an unparseable span")
	}
}

// A stray brace in the prose widens the candidate span and breaks the
// parse. That is the documented behavior of the outermost-brace
// heuristic, not something to paper over.
func TestExtractStrayBraceDefeatsHeuristic(t *testing.T) {
	t.Parallel()

	text := `set {tone} first, then use {"title":"Pilot"}`
	if _, ok := Extract(text); ok {
		t.Fatal("heuristic should fail on a widened, invalid span")
	}
}

func TestExtractNestedStructure(t *testing.T) {
	t.Parallel()

	text := `result: {"ideas":[{"title":"A"},{"title":"B"}],"count":2}`
	pretty, ok := Extract(text)
	if !ok {
		t.Fatal("expected a payload")
	}
	if got := stripWhitespace(pretty); got != `{"count":2,"ideas":[{"title":"A"},{"title":"B"}]}` {
		t.Fatalf("extracted payload = %q", got)
	}
}

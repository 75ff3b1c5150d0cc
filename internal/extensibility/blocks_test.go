package extensibility

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func startMarker(id string) string { return "<!-- USER-EXTENSION-START: " + id + " -->" }
func endMarker(id string) string   { return "<!-- USER-EXTENSION-END: " + id + " -->" }

func block(id, body string) string {
	return startMarker(id) + body + endMarker(id)
}

// --- ExtractBlocks ---

func TestExtractBlocks_OrderAndText(t *testing.T) {
	content := "<!-- EXTENSIBLE -->\n# Doc\n" +
		block("b", "\nsecond\n") + "\nmiddle\n" +
		block("a", "\nfirst\n") + "\n"

	set := ExtractBlocks(content)

	if diff := cmp.Diff([]string{"b", "a"}, set.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}

	b, ok := set.Get("b")
	if !ok {
		t.Fatal("block b not captured")
	}
	if b.Text != block("b", "\nsecond\n") {
		t.Errorf("Text = %q, want full block with markers", b.Text)
	}
	if b.Body != "\nsecond\n" {
		t.Errorf("Body = %q, want %q", b.Body, "\nsecond\n")
	}
	if content[b.Start:b.End] != b.Text {
		t.Errorf("offsets [%d:%d] do not address the block text", b.Start, b.End)
	}
}

func TestExtractBlocks_EmptyBlock(t *testing.T) {
	content := startMarker("x") + endMarker("x")

	set := ExtractBlocks(content)
	x, ok := set.Get("x")
	if !ok {
		t.Fatal("empty block x not captured")
	}
	if x.Body != "" {
		t.Errorf("Body = %q, want empty", x.Body)
	}
	if x.Text != content {
		t.Errorf("Text = %q, want %q", x.Text, content)
	}
}

func TestExtractBlocks_WhitespaceOnlyBlock(t *testing.T) {
	set := ExtractBlocks(block("ws", "\n   \n"))
	ws, ok := set.Get("ws")
	if !ok {
		t.Fatal("whitespace block not captured")
	}
	if ws.Body != "\n   \n" {
		t.Errorf("Body = %q", ws.Body)
	}
}

func TestExtractBlocks_NoBlocks(t *testing.T) {
	set := ExtractBlocks("<!-- EXTENSIBLE -->\n# Fresh file\n")
	if set.Len() != 0 {
		t.Errorf("Len = %d, want 0", set.Len())
	}
	if len(set.IDs()) != 0 {
		t.Errorf("IDs = %v, want none", set.IDs())
	}
}

func TestExtractBlocks_DuplicateIDFirstWins(t *testing.T) {
	content := block("a", "one") + "\n" + block("a", "two") + "\n" + block("a", "three")

	set := ExtractBlocks(content)
	if set.Len() != 1 {
		t.Fatalf("Len = %d, want 1", set.Len())
	}
	a, _ := set.Get("a")
	if a.Body != "one" {
		t.Errorf("Body = %q, want first occurrence", a.Body)
	}
	if diff := cmp.Diff([]string{"a"}, set.Duplicates()); diff != "" {
		t.Errorf("Duplicates mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractBlocks_UnterminatedStartIsSkipped(t *testing.T) {
	content := startMarker("broken") + "\ndangling\n" + block("ok", "kept")

	set := ExtractBlocks(content)
	if _, ok := set.Get("broken"); ok {
		t.Error("unterminated block should not be captured")
	}
	ok, found := set.Get("ok")
	if !found {
		t.Fatal("block after an unterminated start should be captured")
	}
	if ok.Body != "kept" {
		t.Errorf("Body = %q, want kept", ok.Body)
	}
}

func TestExtractBlocks_NestedSameNameEndsAtFirstEnd(t *testing.T) {
	content := startMarker("n") + "X" + startMarker("n") + "Y" + endMarker("n") + "Z" + endMarker("n")

	set := ExtractBlocks(content)
	n, ok := set.Get("n")
	if !ok {
		t.Fatal("block n not captured")
	}
	want := "X" + startMarker("n") + "Y"
	if n.Body != want {
		t.Errorf("Body = %q, want %q", n.Body, want)
	}
	if set.Len() != 1 {
		t.Errorf("Len = %d, want 1", set.Len())
	}
}

func TestExtractBlocks_IDWithRegexCharacters(t *testing.T) {
	set := ExtractBlocks(block("my.id+(v2)", "body"))
	b, ok := set.Get("my.id+(v2)")
	if !ok {
		t.Fatal("id with regex metacharacters not captured")
	}
	if b.Body != "body" {
		t.Errorf("Body = %q", b.Body)
	}
}

func TestExtractBlocks_MismatchedIDsDoNotPair(t *testing.T) {
	set := ExtractBlocks(startMarker("a") + "text" + endMarker("b"))
	if set.Len() != 0 {
		t.Errorf("Len = %d, want 0 for mismatched ids", set.Len())
	}
}

func TestBlockSet_NilSafe(t *testing.T) {
	var set *BlockSet
	if set.Len() != 0 || set.IDs() != nil || set.All() != nil || set.Duplicates() != nil {
		t.Error("nil BlockSet should behave as empty")
	}
	if _, ok := set.Get("x"); ok {
		t.Error("nil BlockSet Get should report not found")
	}
}

func TestPlaceholder(t *testing.T) {
	if got := Placeholder("custom-rules"); got != "[[EXTENSION:custom-rules]]" {
		t.Errorf("Placeholder = %q", got)
	}
}

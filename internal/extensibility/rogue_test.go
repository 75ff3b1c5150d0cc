package extensibility

import (
	"strings"
	"testing"
)

const rogueTemplate = "<!-- EXTENSIBLE -->\n# Release Workflow\n\nStep one.\n\n" +
	"<!-- USER-EXTENSION-START: pre-release -->\n<!-- USER-EXTENSION-END: pre-release -->\n\nStep two.\n"

// --- DetectRogueEdits ---

func TestDetectRogueEdits_Identical(t *testing.T) {
	r := DetectRogueEdits(rogueTemplate, rogueTemplate)
	if r.HasRogueEdits {
		t.Errorf("identical content flagged: %v", r.Details)
	}
	if len(r.Details) != 0 {
		t.Errorf("Details = %v, want none", r.Details)
	}
}

func TestDetectRogueEdits_BlockContentIgnored(t *testing.T) {
	deployed := strings.Replace(rogueTemplate,
		"<!-- USER-EXTENSION-START: pre-release -->\n",
		"<!-- USER-EXTENSION-START: pre-release -->\nRun the smoke suite.\nNotify #releases.\n", 1)

	r := DetectRogueEdits(deployed, rogueTemplate)
	if r.HasRogueEdits {
		t.Errorf("edits inside a block flagged as rogue: %v", r.Details)
	}
}

func TestDetectRogueEdits_IncidentalWhitespaceIgnored(t *testing.T) {
	deployed := strings.ReplaceAll(rogueTemplate, "\n", "\r\n")
	deployed = strings.Replace(deployed, "Step one.", "Step one.   \t", 1)
	deployed = strings.Replace(deployed, "Step two.", "\n\n\nStep two.", 1)
	deployed += "\n\n\n"

	r := DetectRogueEdits(deployed, rogueTemplate)
	if r.HasRogueEdits {
		t.Errorf("whitespace-only differences flagged: %v", r.Details)
	}
}

func TestDetectRogueEdits_EditOutsideBlock(t *testing.T) {
	deployed := strings.Replace(rogueTemplate, "Step one.", "Step one, but my way.", 1)

	r := DetectRogueEdits(deployed, rogueTemplate)
	if !r.HasRogueEdits {
		t.Fatal("edit outside blocks not detected")
	}
	if r.Details[0] != RogueEditMessage {
		t.Errorf("Details[0] = %q, want generic message", r.Details[0])
	}
	joined := strings.Join(r.Details[1:], "\n")
	if !strings.Contains(joined, "Step one, but my way.") {
		t.Errorf("hints should localize the edited line, got:\n%s", joined)
	}
}

func TestDetectRogueEdits_UpstreamChangeAlsoFlagged(t *testing.T) {
	// The comparison baseline is the incoming template, so a framework-side
	// change outside blocks is indistinguishable from a user edit.
	newTemplate := strings.Replace(rogueTemplate, "Step two.", "Step two (revised).", 1)

	r := DetectRogueEdits(rogueTemplate, newTemplate)
	if !r.HasRogueEdits {
		t.Error("upstream template change outside blocks should be reported")
	}
}

func TestDetectRogueEdits_MarkerRemovedUpstream(t *testing.T) {
	deployed := "<!-- EXTENSIBLE -->\n# Doc\n" + block("c", "\nmine\n") + "\n"
	newTemplate := "<!-- EXTENSIBLE -->\n# Doc\n"

	r := DetectRogueEdits(deployed, newTemplate)
	if !r.HasRogueEdits {
		t.Error("a vanished extension point changes the structure and should be reported")
	}
}

func TestDetectRogueEdits_FrontmatterCompared(t *testing.T) {
	tests := []struct {
		name     string
		deployed string
		template string
	}{
		{
			"template version bump",
			"---\nversion: 1.0.0\n---\n" + rogueTemplate,
			"---\nversion: 2.0.0\ntitle: New\n---\n" + rogueTemplate,
		},
		{
			"user field added",
			"---\nversion: 1.0.0\nowner: me\n---\n" + rogueTemplate,
			"---\nversion: 1.0.0\n---\n" + rogueTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DetectRogueEdits(tt.deployed, tt.template)
			if !r.HasRogueEdits {
				t.Error("a frontmatter difference should be reported")
			}
		})
	}

	same := "---\nversion: 1.0.0\n---\n" + rogueTemplate
	if r := DetectRogueEdits(same, same); r.HasRogueEdits {
		t.Errorf("identical frontmatter reported: %v", r.Details)
	}
}

func TestDetectRogueEdits_HintsAreCapped(t *testing.T) {
	var oldB, newB strings.Builder
	for i := 0; i < 20; i++ {
		oldB.WriteString("old line\n")
		newB.WriteString("new line\n")
	}
	r := DetectRogueEdits(oldB.String(), newB.String())
	if !r.HasRogueEdits {
		t.Fatal("expected rogue edits")
	}
	// Generic message + capped hints + overflow note.
	if len(r.Details) != 1+maxRogueHints+1 {
		t.Errorf("len(Details) = %d, want %d", len(r.Details), maxRogueHints+2)
	}
	if !strings.Contains(r.Details[len(r.Details)-1], "more differing lines") {
		t.Errorf("last detail = %q, want overflow note", r.Details[len(r.Details)-1])
	}
}

// --- normalizeWhitespace ---

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a\r\nb", "a\nb"},
		{"a  \nb\t", "a\nb"},
		{"a\n\n\n\nb", "a\n\nb"},
		{"\n\na\n\n", "a"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeWhitespace(tt.in); got != tt.want {
			t.Errorf("normalizeWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClip(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := clip(long)
	if len([]rune(got)) != maxHintRunes {
		t.Errorf("clip length = %d, want %d", len([]rune(got)), maxHintRunes)
	}
	if clip("short") != "short" {
		t.Error("short strings should be unchanged")
	}
}

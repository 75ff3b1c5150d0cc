package extensibility

import (
	"fmt"
	"regexp"
)

// markerPrefix is the keyword prefix shared by extension markers.
const markerPrefix = "USER-EXTENSION"

// startPattern matches an extension start marker and captures its id.
//
//	<!-- USER-EXTENSION-START: id -->
var startPattern = regexp.MustCompile(`<!--\s*USER-EXTENSION-START:\s*(\S+?)\s*-->`)

// Block is one captured extension block.
type Block struct {
	ID string
	// Text is the full block including both marker comments.
	Text string
	// Body is the content between the markers.
	Body string
	// Start and End are byte offsets of Text in the source.
	Start, End int
}

// BlockSet is an ordered mapping of extension id to block, in order of
// first appearance.
type BlockSet struct {
	blocks     []Block
	index      map[string]int
	duplicates []string

	// occurrences holds every captured block, duplicates included, in
	// source order.
	occurrences []Block
}

func newBlockSet() *BlockSet {
	return &BlockSet{index: make(map[string]int)}
}

// Len returns the number of distinct ids.
func (s *BlockSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.blocks)
}

// Get returns the block for id.
func (s *BlockSet) Get(id string) (Block, bool) {
	if s == nil {
		return Block{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Block{}, false
	}
	return s.blocks[i], true
}

// IDs returns block ids in order of first appearance.
func (s *BlockSet) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.blocks))
	for i, b := range s.blocks {
		ids[i] = b.ID
	}
	return ids
}

// All returns the blocks in order of first appearance.
func (s *BlockSet) All() []Block {
	if s == nil {
		return nil
	}
	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Duplicates returns ids that appeared more than once. Only the first
// occurrence of each id is captured.
func (s *BlockSet) Duplicates() []string {
	if s == nil {
		return nil
	}
	return s.duplicates
}

func (s *BlockSet) add(b Block) {
	s.occurrences = append(s.occurrences, b)
	if _, ok := s.index[b.ID]; ok {
		s.noteDuplicate(b.ID)
		return
	}
	s.index[b.ID] = len(s.blocks)
	s.blocks = append(s.blocks, b)
}

func (s *BlockSet) noteDuplicate(id string) {
	for _, d := range s.duplicates {
		if d == id {
			return
		}
	}
	s.duplicates = append(s.duplicates, id)
}

// endPattern returns the matcher for the end marker of id.
func endPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`<!--\s*USER-EXTENSION-END:\s*` + regexp.QuoteMeta(id) + `\s*-->`)
}

// ExtractBlocks captures every extension block in content.
//
// A block runs from a start marker to the first following end marker with
// the same id. Scanning resumes after each captured block, so a block
// nested inside another is part of the outer block's text. A start marker
// without a matching end marker is skipped. Files without markers yield an
// empty set.
func ExtractBlocks(content string) *BlockSet {
	set := newBlockSet()

	pos := 0
	for pos < len(content) {
		loc := startPattern.FindStringSubmatchIndex(content[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		startEnd := pos + loc[1]
		id := content[pos+loc[2] : pos+loc[3]]

		endLoc := endPattern(id).FindStringIndex(content[startEnd:])
		if endLoc == nil {
			pos = startEnd
			continue
		}
		bodyEnd := startEnd + endLoc[0]
		end := startEnd + endLoc[1]

		set.add(Block{
			ID:    id,
			Text:  content[start:end],
			Body:  content[startEnd:bodyEnd],
			Start: start,
			End:   end,
		})
		pos = end
	}
	return set
}

// Placeholder returns the neutral token substituted for block id during
// comparisons.
func Placeholder(id string) string {
	return fmt.Sprintf("[[EXTENSION:%s]]", id)
}

package scripture

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Reference locates a verse or a verse range within one chapter.
type Reference struct {
	Book     string `json:"book"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	VerseEnd int    `json:"verse_end,omitempty"`
}

// IsRange reports whether the reference spans more than one verse.
func (r Reference) IsRange() bool {
	return r.VerseEnd > 0 && r.VerseEnd != r.Verse
}

// End returns the last verse covered by the reference.
func (r Reference) End() int {
	if r.VerseEnd > 0 {
		return r.VerseEnd
	}
	return r.Verse
}

// String formats the reference as "Book C:V" or "Book C:V-E".
func (r Reference) String() string {
	if r.IsRange() {
		return fmt.Sprintf("%s %d:%d-%d", r.Book, r.Chapter, r.Verse, r.VerseEnd)
	}
	return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
}

// Testament returns OT or NT for the referenced book.
func (r Reference) Testament() string {
	return TestamentOf(r.Book)
}

// Format renders a single verse locator.
func Format(book string, chapter, verse int) string {
	return fmt.Sprintf("%s %d:%d", book, chapter, verse)
}

var (
	// whole-string grammar: optional 1-3 numeral, book words, chapter:verse[-end]
	referencePattern = regexp.MustCompile(`^\s*([1-3]?\s*[A-Za-z]+(?:\s+[A-Za-z]+)*)\s+(\d+):(\d+)(?:\s*-\s*(\d+))?\s*$`)

	// free-text scan; the book token must be capitalised, so a lower-case "at 3:00" never
	// matches. Capitalised time words are filtered in Extract.
	extractPattern = regexp.MustCompile(`\b((?:[1-3]\s?)?(?:Song\s+of\s+(?:Solomon|Songs)|[A-Z][A-Za-z]+))\s+(\d+):(\d+)(?:-(\d+))?`)

	// words that introduce a clock time at the start of a sentence or in a heading
	timeWords = map[string]bool{
		"at": true, "by": true, "from": true, "to": true, "until": true, "till": true,
		"around": true, "about": true, "before": true, "after": true, "since": true,
		"between": true, "and": true, "or": true, "starts": true, "ends": true,
	}
)

// Parse reads a reference string. It returns false for anything outside the grammar,
// for unknown books, for zero chapter or verse numbers, and for ranges ending before
// they start.
func Parse(s string) (Reference, bool) {
	m := referencePattern.FindStringSubmatch(s)
	if m == nil {
		return Reference{}, false
	}
	return build(m[1], m[2], m[3], m[4])
}

func build(book, chapter, verse, verseEnd string) (Reference, bool) {
	name, ok := CanonicalBook(book)
	if !ok {
		return Reference{}, false
	}
	ch, err := strconv.Atoi(chapter)
	if err != nil || ch < 1 {
		return Reference{}, false
	}
	v, err := strconv.Atoi(verse)
	if err != nil || v < 1 {
		return Reference{}, false
	}
	ref := Reference{Book: name, Chapter: ch, Verse: v}
	if verseEnd != "" {
		end, err := strconv.Atoi(verseEnd)
		if err != nil || end < v {
			return Reference{}, false
		}
		ref.VerseEnd = end
	}
	return ref, true
}

// Match is a reference-shaped substring found in free text.
type Match struct {
	Text  string
	Start int
	End   int
	// Ref is only meaningful when Valid is true.
	Ref   Reference
	Valid bool
}

// Extract returns every reference-shaped substring of text in order of appearance.
// Matches naming an unknown book are returned with Valid == false.
func Extract(text string) []Match {
	idx := extractPattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]Match, 0, len(idx))
	for _, loc := range idx {
		group := func(n int) string {
			if loc[2*n] < 0 {
				return ""
			}
			return text[loc[2*n]:loc[2*n+1]]
		}
		ref, ok := build(group(1), group(2), group(3), group(4))
		if !ok && timeWords[strings.ToLower(group(1))] {
			continue
		}
		out = append(out, Match{
			Text:  strings.TrimSpace(text[loc[0]:loc[1]]),
			Start: loc[0],
			End:   loc[1],
			Ref:   ref,
			Valid: ok,
		})
	}
	return out
}

// ContainsReference reports whether text mentions anything reference-shaped.
func ContainsReference(text string) bool {
	return len(Extract(text)) > 0
}

// IsReferenceShaped reports whether s follows the reference grammar, without checking
// that the book exists.
func IsReferenceShaped(s string) bool {
	m := referencePattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	if m[4] == "" {
		return true
	}
	start, _ := strconv.Atoi(m[3])
	end, _ := strconv.Atoi(m[4])
	return end >= start
}

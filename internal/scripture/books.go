package scripture

import "strings"

// Testament values stored on every verse row.
const (
	OldTestament = "OT"
	NewTestament = "NT"
)

// OldTestamentBooks lists the 39 Old Testament books in canonical order.
var OldTestamentBooks = []string{
	"Genesis", "Exodus", "Leviticus", "Numbers", "Deuteronomy",
	"Joshua", "Judges", "Ruth", "1 Samuel", "2 Samuel",
	"1 Kings", "2 Kings", "1 Chronicles", "2 Chronicles", "Ezra",
	"Nehemiah", "Esther", "Job", "Psalms", "Proverbs",
	"Ecclesiastes", "Song of Solomon", "Isaiah", "Jeremiah", "Lamentations",
	"Ezekiel", "Daniel", "Hosea", "Joel", "Amos",
	"Obadiah", "Jonah", "Micah", "Nahum", "Habakkuk",
	"Zephaniah", "Haggai", "Zechariah", "Malachi",
}

// NewTestamentBooks lists the 27 New Testament books in canonical order.
var NewTestamentBooks = []string{
	"Matthew", "Mark", "Luke", "John", "Acts",
	"Romans", "1 Corinthians", "2 Corinthians", "Galatians", "Ephesians",
	"Philippians", "Colossians", "1 Thessalonians", "2 Thessalonians", "1 Timothy",
	"2 Timothy", "Titus", "Philemon", "Hebrews", "James",
	"1 Peter", "2 Peter", "1 John", "2 John", "3 John",
	"Jude", "Revelation",
}

type bookInfo struct {
	name      string
	testament string
	order     int
}

var booksByKey = func() map[string]bookInfo {
	m := make(map[string]bookInfo, len(OldTestamentBooks)+len(NewTestamentBooks))
	for i, b := range OldTestamentBooks {
		m[bookKey(b)] = bookInfo{name: b, testament: OldTestament, order: i + 1}
	}
	for i, b := range NewTestamentBooks {
		m[bookKey(b)] = bookInfo{name: b, testament: NewTestament, order: len(OldTestamentBooks) + i + 1}
	}
	return m
}()

// bookKey folds case and inner whitespace; "1Samuel" and "1 samuel" share a key.
func bookKey(name string) string {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if len(key) > 1 && key[0] >= '1' && key[0] <= '3' && key[1] >= 'a' && key[1] <= 'z' {
		key = key[:1] + " " + key[1:]
	}
	return key
}

// alternate names in common translations; "psalm" is the singular used for one psalm
var bookAliases = map[string]string{
	"psalm":         "psalms",
	"song of songs": "song of solomon",
	"canticles":     "song of solomon",
}

// CanonicalBook returns the canonical spelling of name, matched case-insensitively.
func CanonicalBook(name string) (string, bool) {
	info := lookupBook(name)
	return info.name, info.name != ""
}

func lookupBook(name string) bookInfo {
	key := bookKey(name)
	if alias, ok := bookAliases[key]; ok {
		key = alias
	}
	return booksByKey[key]
}

// IsBook reports whether name is one of the 66 canonical books.
func IsBook(name string) bool {
	_, ok := CanonicalBook(name)
	return ok
}

// TestamentOf returns OT or NT for a canonical book, or "" when unknown.
func TestamentOf(name string) string {
	return lookupBook(name).testament
}

// BookOrder returns the 1-based canonical position of a book, or 0 when unknown.
func BookOrder(name string) int {
	return lookupBook(name).order
}

// AllBooks returns the 66 books in canonical order.
func AllBooks() []string {
	out := make([]string, 0, len(OldTestamentBooks)+len(NewTestamentBooks))
	out = append(out, OldTestamentBooks...)
	return append(out, NewTestamentBooks...)
}

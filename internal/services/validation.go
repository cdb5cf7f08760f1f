package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/scripture"
)

// RemovedReferencePlaceholder replaces references Sanitize could not verify
const RemovedReferencePlaceholder = "[Reference removed - not found in Scripture]"

// vagueCitationWindow is how far after a vague citation phrase a reference must appear
const vagueCitationWindow = 50

// negationWindow is how far around a works-based salvation claim "not by works" cancels it
const negationWindow = 100

// VerseChecker reports whether a verse is stored
type VerseChecker interface {
	Exists(ctx context.Context, book string, chapter, verse int, translation string) (bool, error)
}

// ValidationResult is the outcome of validating generated text. IsValid is true exactly
// when Issues is empty.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Issues      []string `json:"issues"`
	Corrections []string `json:"corrections"`
	Warnings    []string `json:"warnings"`
}

func (r *ValidationResult) add(sev severity, msg string) {
	switch sev {
	case sevIssue:
		r.Issues = append(r.Issues, msg)
	case sevWarning:
		r.Warnings = append(r.Warnings, msg)
	case sevCorrection:
		r.Corrections = append(r.Corrections, msg)
	}
}

type severity int

const (
	sevIssue severity = iota
	sevWarning
	sevCorrection
)

// patternRule flags text matching a pattern. A rule with an unless pattern is skipped when
// that pattern matches within negationWindow of the hit.
type patternRule struct {
	id      string
	pattern *regexp.Regexp
	unless  *regexp.Regexp
	sev     severity
	message string
}

var patternRules = []patternRule{
	{
		id:      "prosperity-gospel",
		pattern: regexp.MustCompile(`(?i)God wants you to be (rich|wealthy|prosperous|successful)`),
		sev:     sevIssue,
		message: "Potential prosperity gospel theology detected",
	},
	{
		id:      "self-deification",
		pattern: regexp.MustCompile(`(?i)\byou are (?:a |little )*gods?(?:[^'\w]|$)`),
		sev:     sevIssue,
		message: "Potential theological concern: claims the reader is divine",
	},
	{
		id:      "works-salvation",
		pattern: regexp.MustCompile(`(?i)salvation (by|through) works`),
		unless:  regexp.MustCompile(`(?i)not by works`),
		sev:     sevIssue,
		message: "Potential works-based salvation theology",
	},
	{
		id:      "missing-citation",
		pattern: regexp.MustCompile(`(?i)\[(no verse|citation needed)\]`),
		sev:     sevIssue,
		message: "Citation placeholder left in response",
	},
	{
		id:      "baptismal-regeneration",
		pattern: regexp.MustCompile(`(?i)baptism is required for salvation`),
		sev:     sevWarning,
		message: "Response may contain denominational-specific theology: baptism required for salvation",
	},
	{
		id:      "tongues-evidence",
		pattern: regexp.MustCompile(`(?i)speaking in tongues is (the )?evidence`),
		sev:     sevWarning,
		message: "Response may contain denominational-specific theology: tongues as evidence",
	},
	{
		id:      "predestination",
		pattern: regexp.MustCompile(`(?i)predestination means`),
		sev:     sevWarning,
		message: "Response may contain denominational-specific theology: predestination",
	},
	{
		id:      "eternal-security",
		pattern: regexp.MustCompile(`(?i)once saved,? always saved`),
		sev:     sevWarning,
		message: "Response may contain denominational-specific theology: eternal security",
	},
}

var vagueCitations = []*regexp.Regexp{
	regexp.MustCompile(`(?i)the Bible says`),
	regexp.MustCompile(`(?i)Scripture tells us`),
	regexp.MustCompile(`(?i)it is written`),
	regexp.MustCompile(`(?i)God's word says`),
}

// topicRule asks for a disclaimer when a topic is raised and the response lacks any of
// the satisfying phrases. Matching is case-insensitive.
type topicRule struct {
	id string
	// scope is the text the triggers are searched in
	scope      scope
	triggers   []string
	satisfiers []string
	// warning is emitted when the rule is unsatisfied, or whenever it triggers if
	// warnAlways is set
	warning    string
	warnAlways bool
	correction string
}

type scope int

const (
	scopeCombined scope = iota
	scopeQuestion
)

var topicRules = []topicRule{
	{
		id:         "crisis-line",
		scope:      scopeCombined,
		triggers:   []string{"suicide", "self-harm"},
		satisfiers: []string{"988", "crisis"},
		warning:    "Response addresses suicide/self-harm",
		warnAlways: true,
		correction: `Add crisis helpline information: "If you're in crisis, please call 988 (Suicide & Crisis Lifeline) or reach out to a trusted counselor."`,
	},
	{
		id:         "professional-referral",
		scope:      scopeCombined,
		triggers:   []string{"suicide", "self-harm"},
		satisfiers: []string{"pastor", "counselor"},
		correction: `Recommend professional help: "Please speak with a pastor, counselor, or mental health professional."`,
	},
	{
		id:         "medical",
		scope:      scopeCombined,
		triggers:   []string{"medical", "disease", "diagnosis"},
		satisfiers: []string{"doctor", "medical professional"},
		warning:    "Medical topic without professional disclaimer",
		correction: `Add medical disclaimer: "This is spiritual guidance only. Please consult with medical professionals for health concerns."`,
	},
	{
		id:         "legal",
		scope:      scopeCombined,
		triggers:   []string{"legal", "lawsuit", "divorce"},
		satisfiers: []string{"attorney", "legal counsel"},
		warning:    "Legal topic without professional disclaimer",
		correction: `Add legal disclaimer: "For legal matters, please consult with a qualified attorney."`,
	},
	{
		id:         "interfaith",
		scope:      scopeQuestion,
		triggers:   []string{"islam", "buddhism", "hinduism", "judaism"},
		satisfiers: []string{"christian perspective", "biblical view"},
		correction: `Add disclaimer: "This response represents a Christian biblical perspective."`,
	},
	{
		id:         "controversial",
		scope:      scopeQuestion,
		triggers:   []string{"homosexuality", "abortion", "politics", "evolution"},
		satisfiers: []string{"christians hold different views", "various interpretations"},
		correction: `Add disclaimer: "Christians hold different biblical views on this topic."`,
	},
}

// Validator checks generated text for unverifiable scripture references, theological red
// flags and missing safety disclaimers.
type Validator struct {
	verses      VerseChecker
	translation string
	log         *logger.Logger
}

// NewValidator creates a validator that checks references against translation
func NewValidator(verses VerseChecker, translation string, log *logger.Logger) *Validator {
	return &Validator{verses: verses, translation: translation, log: log}
}

// Validate runs every check over text. It never fails; unverifiable references caused
// by store errors are logged and left unflagged.
func (v *Validator) Validate(ctx context.Context, text, question string) ValidationResult {
	res := ValidationResult{
		Issues:      []string{},
		Corrections: []string{},
		Warnings:    []string{},
	}

	v.checkReferences(ctx, text, &res)
	checkVagueCitations(text, &res)
	checkPatterns(text, &res)
	checkTopics(question, text, &res)

	res.IsValid = len(res.Issues) == 0
	return res
}

func (v *Validator) checkReferences(ctx context.Context, text string, res *ValidationResult) {
	seen := map[string]bool{}
	for _, m := range scripture.Extract(text) {
		if seen[m.Text] {
			continue
		}
		seen[m.Text] = true

		if !v.referenceExists(ctx, m) {
			res.add(sevIssue, fmt.Sprintf("Invalid verse reference: %s", m.Text))
			res.add(sevCorrection, fmt.Sprintf("Remove or correct the reference %q", m.Text))
		}
	}
}

// referenceExists is false only for references known to be bad
func (v *Validator) referenceExists(ctx context.Context, m scripture.Match) bool {
	if !m.Valid {
		return false
	}
	ok, err := v.verses.Exists(ctx, m.Ref.Book, m.Ref.Chapter, m.Ref.Verse, v.translation)
	if err != nil {
		v.log.Warn("could not verify verse reference", "reference", m.Text, "error", err)
		return true
	}
	return ok
}

func checkVagueCitations(text string, res *ValidationResult) {
	for _, p := range vagueCitations {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			end := min(loc[1]+vagueCitationWindow, len(text))
			if !scripture.ContainsReference(text[loc[1]:end]) {
				res.add(sevCorrection, "Add specific verse reference after biblical claim")
				return
			}
		}
	}
}

func checkPatterns(text string, res *ValidationResult) {
	for _, rule := range patternRules {
		for _, loc := range rule.pattern.FindAllStringIndex(text, -1) {
			if rule.unless != nil && rule.unless.MatchString(window(text, loc, negationWindow)) {
				continue
			}
			res.add(rule.sev, rule.message)
			break
		}
	}
}

func checkTopics(question, response string, res *ValidationResult) {
	q := strings.ToLower(question)
	r := strings.ToLower(response)
	combined := q + " " + r

	for _, rule := range topicRules {
		haystack := combined
		if rule.scope == scopeQuestion {
			haystack = q
		}
		if !containsAny(haystack, rule.triggers) {
			continue
		}
		satisfied := containsAny(r, rule.satisfiers)
		if rule.warning != "" && (rule.warnAlways || !satisfied) {
			res.add(sevWarning, rule.warning)
		}
		if !satisfied {
			res.add(sevCorrection, rule.correction)
		}
	}
}

// Sanitize replaces references that do not resolve to a stored verse with
// RemovedReferencePlaceholder. Valid references are left untouched.
func (v *Validator) Sanitize(ctx context.Context, text string) string {
	matches := scripture.Extract(text)
	if len(matches) == 0 {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		if v.referenceExists(ctx, m) {
			continue
		}
		sb.WriteString(text[last:m.Start])
		sb.WriteString(RemovedReferencePlaceholder)
		last = m.End
	}
	sb.WriteString(text[last:])
	return sb.String()
}

func window(text string, loc []int, radius int) string {
	start := max(loc[0]-radius, 0)
	end := min(loc[1]+radius, len(text))
	return text[start:end]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Package classify decides whether a string literal found in source code
// is user-facing UI text (localizable) or code-logic noise.
//
// The decision is purely lexical: a literal occurrence is judged by its
// own text plus the enclosing source line, against an ordered rule table.
// Avoidance patterns are always evaluated before any positive pattern —
// a literal whose context matches both is rejected. This is a hard
// precedence rule, not a tie break.
package classify

import (
	"fmt"
	"regexp"
)

// ---------------------------------------------------------------------------
// Occurrence and verdict
// ---------------------------------------------------------------------------

// Occurrence is a candidate literal found during a scan pass.
type Occurrence struct {
	// Literal is the text between the quotes, exactly as written in source.
	Literal string
	// Path is the source file containing the literal.
	Path string
	// Line is the 1-based line number.
	Line int
	// Context is the full text of the enclosing line.
	Context string
}

// Rejection reasons.
const (
	ReasonAvoided     = "avoided"
	ReasonTrivial     = "trivial"
	ReasonNoLetters   = "no-letters"
	ReasonNoUIContext = "no-ui-context"
)

// Verdict is the classification result for one occurrence.
type Verdict struct {
	// Accepted is true when the literal should be localized.
	Accepted bool
	// Reason is the rejection reason, empty on accept.
	Reason string
	// Pattern is the rule that decided: the matched avoidance pattern on
	// an "avoided" rejection, the matched UI pattern on an accept.
	Pattern string
}

// ---------------------------------------------------------------------------
// Rule set
// ---------------------------------------------------------------------------

// Ruleset holds the compiled classification rules. It is immutable after
// construction and safe to share.
type Ruleset struct {
	avoid   []*regexp.Regexp
	ui      []*regexp.Regexp
	trivial []*regexp.Regexp
	minLen  int
}

// Options configures a Ruleset. Empty pattern lists fall back to the
// built-in Swift/SwiftUI defaults.
type Options struct {
	// UIPatterns are positive patterns identifying user-facing text sinks.
	// Each must contain exactly one capture group for the literal.
	UIPatterns []string
	// AvoidPatterns are negative patterns matched against the enclosing line.
	AvoidPatterns []string
	// MinLength is the minimum literal length; shorter literals are trivial.
	// Zero means the default (3).
	MinLength int
}

// DefaultMinLength is the minimum literal length considered localizable.
const DefaultMinLength = 3

// NewRuleset compiles the given patterns into a Ruleset. An invalid
// regular expression is a configuration error and fails the whole set.
func NewRuleset(opts Options) (*Ruleset, error) {
	uiSrc := opts.UIPatterns
	if len(uiSrc) == 0 {
		uiSrc = DefaultUIPatterns()
	}
	avoidSrc := opts.AvoidPatterns
	if len(avoidSrc) == 0 {
		avoidSrc = DefaultAvoidPatterns()
	}
	minLen := opts.MinLength
	if minLen == 0 {
		minLen = DefaultMinLength
	}

	rs := &Ruleset{minLen: minLen}
	for _, p := range uiSrc {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling UI pattern %q: %w", p, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("UI pattern %q must have exactly one capture group", p)
		}
		rs.ui = append(rs.ui, re)
	}
	for _, p := range avoidSrc {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling avoidance pattern %q: %w", p, err)
		}
		rs.avoid = append(rs.avoid, re)
	}
	for _, p := range trivialShapes {
		rs.trivial = append(rs.trivial, regexp.MustCompile(p))
	}
	return rs, nil
}

// UIPatterns returns the compiled positive patterns. The scanner runs
// these per line to find literal occurrences.
func (rs *Ruleset) UIPatterns() []*regexp.Regexp {
	return rs.ui
}

// MinLength returns the configured minimum literal length.
func (rs *Ruleset) MinLength() int {
	return rs.minLen
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

// hasLetter reports whether s contains at least one letter. Unicode
// letters count: CJK UI text has no ASCII letters but is still text.
var hasLetter = regexp.MustCompile(`\pL`)

// trivialShapes match literals that are never UI text: pure
// digits/punctuation, SHOUTING constant names, dotted identifiers.
var trivialShapes = []string{
	`^[0-9\s\-\+\.,:;!?%$#@&*()\[\]{}'"/\\_|<>=~^` + "`" + `]*$`,
	`^[A-Z_]+$`,
	`^\w+\.\w+$`,
}

// Classify decides whether the occurrence is localizable. The decision
// order is fixed: avoidance, triviality, no-letters, UI context. Avoidance
// always wins over any positive match.
func (rs *Ruleset) Classify(o Occurrence) Verdict {
	for _, re := range rs.avoid {
		if re.MatchString(o.Context) {
			return Verdict{Reason: ReasonAvoided, Pattern: re.String()}
		}
	}

	if len([]rune(o.Literal)) < rs.minLen {
		return Verdict{Reason: ReasonTrivial}
	}
	for _, re := range rs.trivial {
		if re.MatchString(o.Literal) {
			return Verdict{Reason: ReasonTrivial, Pattern: re.String()}
		}
	}

	if !hasLetter.MatchString(o.Literal) {
		return Verdict{Reason: ReasonNoLetters}
	}

	for _, re := range rs.ui {
		if re.MatchString(o.Context) {
			return Verdict{Accepted: true, Pattern: re.String()}
		}
	}
	return Verdict{Reason: ReasonNoUIContext}
}

// ---------------------------------------------------------------------------
// Default rule tables
// ---------------------------------------------------------------------------

// DefaultUIPatterns returns the built-in positive patterns for
// Swift/SwiftUI sources. Each has one capture group for the literal.
func DefaultUIPatterns() []string {
	return []string{
		// SwiftUI view constructors
		`Text\s*\(\s*"([^"]+)"\s*\)`,
		`Button\s*\(\s*"([^"]+)"\s*[,)]`,
		`Label\s*\(\s*"([^"]+)"\s*[,)]`,
		`Toggle\s*\(\s*"([^"]+)"\s*[,)]`,
		`Picker\s*\(\s*"([^"]+)"\s*[,)]`,
		`Menu\s*\(\s*"([^"]+)"\s*[,)]`,
		`TextField\s*\(\s*"([^"]+)"\s*[,)]`,
		`SecureField\s*\(\s*"([^"]+)"\s*[,)]`,

		// Labeled arguments that reach the screen
		`title:\s*"([^"]+)"`,
		`message:\s*"([^"]+)"`,
		`placeholder:\s*"([^"]+)"`,
		`\.help\s*\(\s*"([^"]+)"\s*\)`,
		`\.alert\s*\(\s*"([^"]+)"\s*[,)]`,
		`\.navigationTitle\s*\(\s*"([^"]+)"\s*\)`,

		// Display text produced by control flow
		`return\s+"([^"]+)"`,
		`\?\s*"([^"]+)"\s*:`,
		`=\s*"([^"]+)"\s*;?\s*$`,
	}
}

// DefaultAvoidPatterns returns the built-in negative patterns. A line
// matching any of these never yields a localizable literal, even when a
// positive pattern also matches.
func DefaultAvoidPatterns() []string {
	return []string{
		// Already localized
		`NSLocalizedString\s*\(`,
		`String\s*\(\s*localized:`,

		// Framework and storage APIs
		`UserDefaults\.`,
		`\.forKey\s*\(`,
		`NSPasteboard\.`,
		`Bundle\.main\.`,
		`FileManager\.`,
		`URL\s*\(`,
		`\.rawValue`,
		`\.identifier`,

		// Declarations and attributes
		`\blet\s+\w+\s*=`,
		`\bvar\s+\w+\s*=`,
		`\bfunc\s+\w+`,
		`\bcase\s+\w+\s*=`,
		`\benum\s+\w+`,
		`\bstruct\s+\w+`,
		`\bclass\s+\w+`,
		`^\s*import\s`,
		`^\s*@\w+`,

		// Comment lines
		`^\s*//`,
		`^\s*/\*`,

		// Tokens that look like file artifacts, URLs, identifiers
		`\.(swift|plist|json|xml|yaml|yml|framework|bundle|xcassets)\b`,
		`https?://`,
		`\b(application|audio|video|image)/`,
		`\bcom\.[a-zA-Z]`,
		`\b(macOS|iOS|tvOS|watchOS)\b`,

		// Model names and similar proper nouns
		`\bgpt-[0-9]`,
		`\bclaude-[0-9]`,
		`\bggml-\w+`,
		`\bwhisper\b`,
	}
}

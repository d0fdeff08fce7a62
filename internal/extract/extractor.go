package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"cert-verification/internal/model"
)

// fieldPattern is one row of the extraction table: an anchor locating the
// field's label, and either a direct capture group in the anchor or a
// bounded free-text scan terminated by a stop label.
type fieldPattern struct {
	anchor *regexp.Regexp
	// class bounds free-text values (names); nil means the anchor's first
	// capture group is the value.
	class *regexp.Regexp
	// stop ends a free-text value at the next expected label; consulted
	// only when class is set.
	stop *regexp.Regexp
	// useCleaned selects whitespace-normalized text for matching. Label
	// anchors for the other fields depend on the source formatting, so
	// cleaning is deliberately not applied to them.
	useCleaned bool
}

var (
	namePattern = fieldPattern{
		anchor:     regexp.MustCompile(`(?i)(?:Student\s*Name|Name)\s*[:\-]?\s*`),
		class:      regexp.MustCompile(`^[\p{L}\d\s.'-]+`),
		stop:       regexp.MustCompile(`(?i)^\s*(?:Mother(?:'s)?\s*Name|Mother\b|Marks|Certificate|Seat\s*No|College)`),
		useCleaned: true,
	}
	scorePattern = fieldPattern{
		anchor: regexp.MustCompile(`(?i)Third Semester SGPA\s*[:\-]?\s*([\d.]+)`),
	}
	identifierPattern = fieldPattern{
		anchor: regexp.MustCompile(`(?i)Perm Reg No\(PRN\)\s*[:\-]?\s*([A-Z0-9]+)`),
	}

	nbsp               = regexp.MustCompile(`\x{00A0}`)
	horizontalSpaceRun = regexp.MustCompile(`[^\S\r\n]+`)
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses the identity fields out of recognized text. Pure and
// deterministic; a field whose pattern does not match comes back nil,
// never as an error or an empty string.
func (e *Extractor) Extract(rawText string) model.ExtractedFields {
	cleaned := Clean(rawText)

	return model.ExtractedFields{
		Name:       matchField(namePattern, rawText, cleaned),
		Score:      matchField(scorePattern, rawText, cleaned),
		Identifier: matchField(identifierPattern, rawText, cleaned),
		RawText:    rawText,
	}
}

// Clean collapses non-breaking spaces and runs of horizontal whitespace to
// single spaces, preserving line breaks, and trims the ends.
func Clean(text string) string {
	cleaned := nbsp.ReplaceAllString(text, " ")
	cleaned = horizontalSpaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

func matchField(p fieldPattern, rawText, cleanedText string) *string {
	text := rawText
	if p.useCleaned {
		text = cleanedText
	}

	if p.class == nil {
		m := p.anchor.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		value := strings.TrimSpace(m[1])
		return &value
	}

	// Free-text field. RE2 has no lookahead, so the original non-greedy
	// capture-until-next-label is emulated: after each anchor occurrence,
	// take the shortest non-empty class-conformant prefix followed by a
	// stop label or end of text.
	for _, loc := range p.anchor.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		region := p.class.FindString(rest)
		if region == "" {
			continue
		}
		if value, ok := scanUntilStop(p.stop, rest, len(region)); ok {
			return &value
		}
	}
	return nil
}

// scanUntilStop finds the smallest non-empty prefix of rest, within the
// first limit bytes, after which a stop label (or only trailing
// whitespace) follows.
func scanUntilStop(stop *regexp.Regexp, rest string, limit int) (string, bool) {
	for i := 1; i <= limit; i++ {
		if i < len(rest) && !utf8.RuneStart(rest[i]) {
			continue
		}
		tail := rest[i:]
		if stop.MatchString(tail) || strings.TrimSpace(tail) == "" {
			value := strings.TrimSpace(rest[:i])
			if value == "" {
				return "", false
			}
			return value, true
		}
	}
	return "", false
}

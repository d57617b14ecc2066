package detect

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

type pattern struct {
	re         *regexp.Regexp
	entityType string
	score      float64
	check      func(string) bool
}

var (
	emailRegexp = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRegexp = regexp.MustCompile(`\+?\(?\d{1,3}\)?[\s\-]?\d{3}[\s\-]\d{3,4}(?:[\s\-]\d{2,4})?\b`)
	ssnRegexp   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	cardRegexp = regexp.MustCompile(`\b\d(?:[ \-]?\d){12,18}\b`)
	ibanRegexp = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)

	mrnRegexp = regexp.MustCompile(`(?i)\bMRN[:#\s]*(\d{6,10})\b`)
	icdRegexp = regexp.MustCompile(`(?i)\bICD-?10[:\s]+([A-TV-Z]\d{2}(?:\.\d{1,4})?)\b`)
	dobRegexp = regexp.MustCompile(`(?i)\b(?:DOB|date of birth)[:\s]+(\d{1,2}/\d{1,2}/\d{2,4})\b`)
)

var regexPatterns = map[Category][]pattern{
	PII: {
		{re: emailRegexp, entityType: "EMAIL", score: 0.99},
		{re: ssnRegexp, entityType: "SOCIALNUM", score: 0.9},
		{re: phoneRegexp, entityType: "TELEPHONENUM", score: 0.85},
	},
	PCI: {
		{re: cardRegexp, entityType: "CREDITCARDNUMBER", score: 0.97, check: luhnValid},
		{re: ibanRegexp, entityType: "ACCOUNTNUM", score: 0.85},
	},
	PHI: {
		{re: mrnRegexp, entityType: "MRN", score: 0.9},
		{re: icdRegexp, entityType: "ICD10", score: 0.88},
		{re: dobRegexp, entityType: "DOB", score: 0.8},
	},
}

// RegexDetector is an in-process detector for one category. It is meant for
// local runs and tests where no model is installed.
type RegexDetector struct {
	Category Category
}

func (d RegexDetector) Detect(ctx context.Context, text string) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Detection, 0)
	for _, p := range regexPatterns[d.Category] {
		out = append(out, findPatternMatches(text, p, d.Category)...)
	}
	return out, nil
}

// findPatternMatches reports the first capture group when the pattern has
// one, otherwise the whole match.
func findPatternMatches(text string, p pattern, c Category) []Detection {
	indexes := p.re.FindAllStringSubmatchIndex(text, -1)
	out := make([]Detection, 0, len(indexes))
	for _, idx := range indexes {
		start, end := idx[0], idx[1]
		if len(idx) >= 4 && idx[2] >= 0 {
			start, end = idx[2], idx[3]
		}
		candidate := text[start:end]
		if p.check != nil && !p.check(candidate) {
			continue
		}
		out = append(out, Detection{Start: start, End: end, MatchedText: candidate, Category: c, Confidence: p.score, EntityType: p.entityType})
	}
	return out
}

func luhnValid(s string) bool {
	digits := make([]int, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	if strings.Count(s, string(s[0])) == len(s) {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := digits[i]
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}

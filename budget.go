package main

import (
	"fmt"
	"sort"
	"strings"
)

// Budget enforces the per-file token ceiling and counts tokens for results.
type Budget struct {
	tokenizer     Tokenizer
	maxFileTokens int // 0 disables truncation
}

func NewBudget(tk Tokenizer, maxFileTokens int) *Budget {
	if tk == nil {
		tk = approxTokenizer{}
	}
	return &Budget{tokenizer: tk, maxFileTokens: maxFileTokens}
}

// Apply truncates oversized content and records the token count. Placeholder
// and error outcomes cost nothing.
func (b *Budget) Apply(res ExtractionResult) ExtractionResult {
	if res.Outcome.Type != OutcomeContent {
		res.Tokens = 0
		return res
	}
	text, cut, ok := b.Truncate(res.Outcome.Text)
	if ok {
		res.Outcome.Text = text
		// an extractor's own cut (spreadsheet rows) stays recorded; both
		// markers remain in the text
		if !res.Outcome.Truncated {
			res.Outcome.OmittedUnits = cut.units
			res.Outcome.Unit = cut.unit
		}
		res.Outcome.Truncated = true
	}
	res.Tokens = b.tokenizer.CountTokens(res.Outcome.Text)
	return res
}

type truncation struct {
	units  int
	unit   string
	tokens int
}

// truncationMarker is the line that replaces omitted content. A negative
// token count leaves the estimate out.
func truncationMarker(units int, unit string, tokens int) string {
	if tokens < 0 {
		return fmt.Sprintf("... [TRUNCATED: %d %s omitted] ...", units, unit)
	}
	return fmt.Sprintf("... [TRUNCATED: %d %s (~%d tokens) omitted] ...", units, unit, tokens)
}

// Truncate keeps whole lines from the head and the tail, each up to half
// the ceiling, and puts a marker where the middle was. Text under the
// ceiling is returned unchanged with ok == false.
func (b *Budget) Truncate(text string) (string, truncation, bool) {
	if b.maxFileTokens <= 0 {
		return text, truncation{}, false
	}
	total := b.tokenizer.CountTokens(text)
	if total <= b.maxFileTokens {
		return text, truncation{}, false
	}

	headBudget := b.maxFileTokens / 2
	tailBudget := b.maxFileTokens - headBudget

	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	costs := make([]int, len(lines))
	for i, l := range lines {
		costs[i] = b.tokenizer.CountTokens(l)
	}

	head, used := 0, 0
	for head < len(lines) && used+costs[head] <= headBudget {
		used += costs[head]
		head++
	}
	tail, used := 0, 0
	for tail < len(lines)-head && used+costs[len(lines)-1-tail] <= tailBudget {
		used += costs[len(lines)-1-tail]
		tail++
	}

	omitted := len(lines) - head - tail
	if omitted == 0 || (head == 0 && tail == 0) {
		return b.truncateChars(text, total, headBudget, tailBudget)
	}

	omittedTokens := 0
	for _, c := range costs[head : head+omitted] {
		omittedTokens += c
	}

	var sb strings.Builder
	for _, l := range lines[:head] {
		sb.WriteString(l)
	}
	if head > 0 && !strings.HasSuffix(lines[head-1], "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(truncationMarker(omitted, "lines", omittedTokens))
	sb.WriteString("\n")
	for _, l := range lines[len(lines)-tail:] {
		sb.WriteString(l)
	}
	return sb.String(), truncation{units: omitted, unit: "lines", tokens: omittedTokens}, true
}

// truncateChars handles text without usable line structure, such as a
// single minified line. Runes are kept in proportion to the token budget.
func (b *Budget) truncateChars(text string, total, headBudget, tailBudget int) (string, truncation, bool) {
	runes := []rune(text)
	headN := len(runes) * headBudget / total
	tailN := len(runes) * tailBudget / total
	if headN+tailN >= len(runes) {
		return text, truncation{}, false
	}

	middle := string(runes[headN : len(runes)-tailN])
	omitted := len(runes) - headN - tailN
	omittedTokens := b.tokenizer.CountTokens(middle)

	var sb strings.Builder
	sb.WriteString(string(runes[:headN]))
	sb.WriteString("\n")
	sb.WriteString(truncationMarker(omitted, "characters", omittedTokens))
	sb.WriteString("\n")
	sb.WriteString(string(runes[len(runes)-tailN:]))
	return sb.String(), truncation{units: omitted, unit: "characters", tokens: omittedTokens}, true
}

// Reduce computes run totals from the joined results. It is the only place
// aggregates are produced.
func Reduce(results []ExtractionResult) TokenStats {
	stats := TokenStats{PerFile: make([]int, len(results))}

	type acc struct{ files, tokens int }
	byLang := make(map[string]*acc)
	for i, r := range results {
		stats.PerFile[i] = r.Tokens
		stats.Total += r.Tokens
		a := byLang[r.Language]
		if a == nil {
			a = &acc{}
			byLang[r.Language] = a
		}
		a.files++
		a.tokens += r.Tokens
	}

	for lang, a := range byLang {
		share := LanguageShare{Language: lang, Files: a.files, Tokens: a.tokens}
		switch {
		case stats.Total > 0:
			share.Percent = float64(a.tokens) * 100 / float64(stats.Total)
		case len(results) > 0:
			share.Percent = float64(a.files) * 100 / float64(len(results))
		}
		stats.ByLanguage = append(stats.ByLanguage, share)
	}
	sort.Slice(stats.ByLanguage, func(i, j int) bool {
		a, b := stats.ByLanguage[i], stats.ByLanguage[j]
		if a.Tokens != b.Tokens {
			return a.Tokens > b.Tokens
		}
		if a.Files != b.Files {
			return a.Files > b.Files
		}
		return a.Language < b.Language
	})
	return stats
}

// budgetWarning describes a global overage, or returns "" when the total
// fits. Nothing is dropped either way.
func budgetWarning(stats TokenStats, maxTotal int) string {
	if maxTotal <= 0 || stats.Total <= maxTotal {
		return ""
	}
	return fmt.Sprintf("estimated %d tokens exceed the %d token budget by %d", stats.Total, maxTotal, stats.Total-maxTotal)
}

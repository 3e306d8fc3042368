// Package normalize rewrites user questions before retrieval so that short
// or ambiguous queries land on the right policy sections.
package normalize

import (
	"sort"
	"strings"
	"unicode"
)

const (
	TabletSuffix     = " (tablet device / office tablet)"
	AssetLossSuffix  = " asset loss policy device lost stolen penalty annexure tms ticket helpdesk"
	GenericExpansion = "acceptable use policy password policy data security policy vpn policy asset loss policy laptop policy"
)

// genericPhrases are queries too broad to retrieve anything on their own.
var genericPhrases = map[string]bool{
	"it policy":   true,
	"policy":      true,
	"it policies": true,
	"it":          true,
}

// tabletTokens mark a physical tablet unless a browser is mentioned.
var tabletTokens = []string{"tab", "tabs", "ট্যাব", "टैब"}

var browserWords = []string{"chrome", "browser"}

// LossKeywords lists loss/theft markers per supported language.
var LossKeywords = map[string][]string{
	"en":        {"lost", "missing", "stolen", "theft"},
	"bn":        {"হারিয়ে", "হারানো", "চুরি"},
	"hi":        {"खो गया", "खोया", "चोरी"},
	"romanized": {"churi", "chori", "kho gaya"},
}

type rule struct {
	priority int
	suffix   string
	match    func(low string, tokens map[string]bool) bool
}

// Normalizer applies the rewrite rules. The zero value is not usable; call New.
type Normalizer struct {
	rules        []rule
	lossKeywords []string
}

// New builds a Normalizer. extraLossKeywords are appended to the built-in
// per-language loss keyword sets.
func New(extraLossKeywords ...string) *Normalizer {
	n := &Normalizer{}
	for _, lang := range []string{"en", "bn", "hi", "romanized"} {
		n.lossKeywords = append(n.lossKeywords, LossKeywords[lang]...)
	}
	for _, kw := range extraLossKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			n.lossKeywords = append(n.lossKeywords, kw)
		}
	}

	n.rules = []rule{
		{priority: 1, suffix: TabletSuffix, match: mentionsTablet},
		{priority: 2, suffix: AssetLossSuffix, match: n.mentionsLoss},
	}
	return n
}

// Normalize returns the rewritten question. Every rule is evaluated against
// the original text and matched suffixes are appended in rule priority order,
// so the result does not depend on the order rules are declared in. A generic
// phrase replaces the whole text.
func (n *Normalizer) Normalize(question string) string {
	t := strings.TrimSpace(question)
	low := strings.ToLower(t)

	if genericPhrases[low] {
		return GenericExpansion
	}

	tokens := tokenize(low)
	var matched []rule
	for _, r := range n.rules {
		if r.match(low, tokens) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].priority < matched[j].priority })

	var b strings.Builder
	b.WriteString(t)
	for _, r := range matched {
		b.WriteString(r.suffix)
	}
	return strings.TrimSpace(b.String())
}

func mentionsTablet(low string, tokens map[string]bool) bool {
	for _, w := range browserWords {
		if strings.Contains(low, w) {
			return false
		}
	}
	for _, tok := range tabletTokens {
		if tokens[tok] {
			return true
		}
	}
	return false
}

func (n *Normalizer) mentionsLoss(low string, tokens map[string]bool) bool {
	for _, kw := range n.lossKeywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(low, kw) {
				return true
			}
			continue
		}
		if tokens[kw] {
			return true
		}
	}
	return false
}

// tokenize splits on anything that is not a letter, digit or combining mark,
// which keeps Bengali and Devanagari words intact.
func tokenize(low string) map[string]bool {
	fields := strings.FieldsFunc(low, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}

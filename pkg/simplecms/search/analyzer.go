package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/french"
	"github.com/kljensen/snowball/russian"
	"github.com/kljensen/snowball/spanish"
	"github.com/kljensen/snowball/swedish"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Token is one analyzed word. Raw is the folded surface form, Term the
// lexeme stored in the vector.
type Token struct {
	Raw  string
	Term string
}

var stopWords = map[string]func(string) bool{
	"english": english.IsStopWord,
	"french":  french.IsStopWord,
	"spanish": spanish.IsStopWord,
	"russian": russian.IsStopWord,
	"swedish": swedish.IsStopWord,
}

var localeAliases = map[string]string{
	"en": "english",
	"fr": "french",
	"es": "spanish",
	"ru": "russian",
	"sv": "swedish",
}

// Analyzer turns text into lexemes for one locale. Locales without a
// stemmer are analyzed naively: folded and split on non-alphanumerics.
type Analyzer struct {
	language string
	isStop   func(string) bool
}

// NewAnalyzer returns an analyzer for locale ("english", "en", ...). An
// unknown locale yields a naive analyzer.
func NewAnalyzer(locale string) *Analyzer {
	lang := strings.ToLower(strings.TrimSpace(locale))
	if alias, ok := localeAliases[lang]; ok {
		lang = alias
	}
	a := &Analyzer{}
	if isStop, ok := stopWords[lang]; ok {
		a.language = lang
		a.isStop = isStop
	}
	return a
}

// Language returns the stemmer language, or "" for a naive analyzer.
func (a *Analyzer) Language() string {
	return a.language
}

// Analyze tokenizes text. Stop words are dropped. degraded is set when the
// input could not be analyzed for the locale and naive splitting was used.
func (a *Analyzer) Analyze(text string) (tokens []Token, degraded bool) {
	if a.language == "" {
		return naiveTokens(text), false
	}
	if !utf8.ValidString(text) {
		return naiveTokens(text), true
	}

	folded, err := fold(text)
	if err != nil {
		return naiveTokens(text), true
	}

	for _, word := range split(folded) {
		if a.isStop(word) {
			continue
		}
		stem, err := snowball.Stem(word, a.language, false)
		if err != nil || stem == "" {
			return naiveTokens(text), true
		}
		tokens = append(tokens, Token{Raw: word, Term: stem})
	}
	return tokens, false
}

// Terms returns only the lexemes of text.
func (a *Analyzer) Terms(text string) []string {
	tokens, _ := a.Analyze(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

// fold strips combining marks and case-folds. Transformers carry state, so a
// fresh chain is built per call.
func fold(text string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, text)
	if err != nil {
		return "", err
	}
	return cases.Fold().String(s), nil
}

func split(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func naiveTokens(text string) []Token {
	words := split(strings.ToLower(strings.ToValidUTF8(text, " ")))
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Token{Raw: w, Term: w}
	}
	return tokens
}

package search

import (
	"strings"
	"unicode"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// ParseQuery parses free text into a Query whose terms are analyzed with a.
//
// Words are AND-ed. The word "or" joins its neighbours into one clause of
// alternatives, a leading "-" excludes a term and double quotes group a
// phrase. Input with unbalanced quotes is taken literally: every word becomes
// a required term and no operator is honoured.
func ParseQuery(a *Analyzer, text string) simplecms.Query {
	q := simplecms.Query{Raw: text}
	if strings.TrimSpace(text) == "" {
		return q
	}
	if strings.Count(text, `"`)%2 != 0 {
		return parseLiteral(a, q)
	}

	pendingOr := false
	for _, chunk := range lex(text) {
		if !chunk.quoted && !chunk.negated && strings.EqualFold(chunk.text, "or") {
			pendingOr = true
			continue
		}
		term, ok := analyzeTerm(a, chunk.text)
		if !ok {
			continue
		}
		term.Negated = chunk.negated
		if pendingOr && len(q.Clauses) > 0 {
			last := len(q.Clauses) - 1
			q.Clauses[last] = append(q.Clauses[last], term)
		} else {
			q.Clauses = append(q.Clauses, []simplecms.QueryTerm{term})
		}
		pendingOr = false
	}
	return q
}

func parseLiteral(a *Analyzer, q simplecms.Query) simplecms.Query {
	q.Literal = true
	tokens, _ := a.Analyze(strings.ReplaceAll(q.Raw, `"`, " "))
	for _, tok := range tokens {
		q.Clauses = append(q.Clauses, []simplecms.QueryTerm{{
			Raw:    []string{tok.Raw},
			Tokens: []string{tok.Term},
		}})
	}
	return q
}

func analyzeTerm(a *Analyzer, text string) (simplecms.QueryTerm, bool) {
	tokens, _ := a.Analyze(text)
	if len(tokens) == 0 {
		return simplecms.QueryTerm{}, false
	}
	term := simplecms.QueryTerm{
		Raw:    make([]string, len(tokens)),
		Tokens: make([]string, len(tokens)),
	}
	for i, tok := range tokens {
		term.Raw[i] = tok.Raw
		term.Tokens[i] = tok.Term
	}
	return term, true
}

type chunk struct {
	text    string
	quoted  bool
	negated bool
}

// lex splits balanced-quote input into words and quoted phrases.
func lex(text string) []chunk {
	var out []chunk
	rs := []rune(text)
	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}
		c := chunk{}
		if rs[i] == '-' && i+1 < len(rs) && !unicode.IsSpace(rs[i+1]) {
			c.negated = true
			i++
		}
		if rs[i] == '"' {
			end := i + 1
			for end < len(rs) && rs[end] != '"' {
				end++
			}
			c.text = string(rs[i+1 : end])
			c.quoted = true
			i = end + 1
		} else {
			end := i
			for end < len(rs) && !unicode.IsSpace(rs[end]) && rs[end] != '"' {
				end++
			}
			c.text = string(rs[i:end])
			i = end
		}
		out = append(out, c)
	}
	return out
}

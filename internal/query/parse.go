package query

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokTerm tokenKind = iota
	tokQuoted
	tokOp // normalized to AND / OR / NOT
)

type token struct {
	kind tokenKind
	text string
}

// Parse builds an expression tree from a raw query string. It never fails:
// unterminated quotes degrade to plain terms, and operators with no operand
// are dropped. An empty or whitespace-only query returns nil (match all).
func Parse(raw string) Expr {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return nil
	}

	// 1. Fold NOT onto its following operand.
	items := foldNot(tokens)

	// 2. Fold explicit and implicit AND left to right, leaving OR markers.
	items = foldAnd(items)

	// 3. Fold the remainder on OR boundaries.
	return foldOr(items)
}

func tokenize(raw string) []token {
	var tokens []token
	runes := []rune(raw)
	i := 0

	for i < len(runes) {
		c := runes[i]

		if unicode.IsSpace(c) {
			i++
			continue
		}

		// Quoted span: opener decides the closing quote char.
		if c == '"' || c == '\'' {
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == c {
					end = j
					break
				}
			}
			if end == -1 {
				// Unterminated quote degrades to a plain term.
				text := string(runes[i+1:])
				if text != "" {
					tokens = append(tokens, token{kind: tokTerm, text: text})
				}
				break
			}
			if end > i+1 {
				tokens = append(tokens, token{kind: tokQuoted, text: string(runes[i+1 : end])})
			}
			i = end + 1
			continue
		}

		// "-" at string start or right after whitespace is inline negation.
		if c == '-' && (i == 0 || unicode.IsSpace(runes[i-1])) {
			tokens = append(tokens, token{kind: tokOp, text: "NOT"})
			i++
			continue
		}

		// Plain run up to the next whitespace.
		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		word := string(runes[start:i])
		switch strings.ToUpper(word) {
		case "AND", "OR", "NOT":
			tokens = append(tokens, token{kind: tokOp, text: strings.ToUpper(word)})
		default:
			tokens = append(tokens, token{kind: tokTerm, text: word})
		}
	}

	return tokens
}

// item is either an unconsumed token or an already-built subexpression.
type item struct {
	tok  *token
	expr Expr
}

func atom(t token) Expr {
	if t.kind == tokQuoted {
		return Quoted{Text: t.text}
	}
	return Term{Text: t.text}
}

func foldNot(tokens []token) []item {
	var items []item
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.kind == tokOp && t.text == "NOT" {
			// NOT needs a bare term or quoted phrase to its right;
			// a following operator (or end of input) drops the NOT.
			if i+1 < len(tokens) && tokens[i+1].kind != tokOp {
				items = append(items, item{expr: Not{Operand: atom(tokens[i+1])}})
				i++
			}
			continue
		}
		tok := t
		items = append(items, item{tok: &tok})
	}
	return items
}

// foldAnd combines adjacent operands left to right: an explicit AND token and
// plain juxtaposition both mean conjunction ("alice bob" == "alice AND bob").
// OR tokens are left in place for foldOr.
func foldAnd(items []item) []item {
	var out []item
	var cur Expr
	for _, it := range items {
		if it.tok != nil && it.tok.kind == tokOp {
			if it.tok.text == "OR" {
				if cur != nil {
					out = append(out, item{expr: cur})
					cur = nil
				}
				out = append(out, it)
			}
			// A stray AND (or leftover NOT) contributes nothing on its own.
			continue
		}

		operand := it.expr
		if operand == nil {
			operand = atom(*it.tok)
		}
		if cur == nil {
			cur = operand
		} else {
			cur = And{Left: cur, Right: operand}
		}
	}
	if cur != nil {
		out = append(out, item{expr: cur})
	}
	return out
}

func foldOr(items []item) Expr {
	var cur Expr
	for _, it := range items {
		if it.tok != nil {
			continue // OR marker; the fold below joins neighbors
		}
		if cur == nil {
			cur = it.expr
		} else {
			cur = Or{Left: cur, Right: it.expr}
		}
	}
	return cur
}

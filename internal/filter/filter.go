// Package filter evaluates per-question base filter expressions over
// the respondent table. The grammar is deliberately closed: named
// columns, comparison operators, IN lists and boolean combinators.
// Nothing else parses, so arbitrary code can never reach the data.
//
//	expr       := or
//	or         := and ( OR and )*
//	and        := unary ( AND unary )*
//	unary      := NOT unary | "(" expr ")" | comparison
//	comparison := column op literal | column IN "(" literal, ... ")"
//	op         := = | == | != | <> | < | <= | > | >=
//
// Comparisons against a missing value are false, for every operator.
package filter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"crosstab/domain/core"
	"crosstab/domain/survey"
	"crosstab/internal/errors"
)

// Apply parses the expression and returns the matching row indices.
// An empty expression selects every row.
func Apply(expression string, table *survey.RespondentTable) ([]int, error) {
	if strings.TrimSpace(expression) == "" {
		return table.AllRows(), nil
	}
	mask, err := Mask(expression, table)
	if err != nil {
		return nil, err
	}
	indices := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			indices = append(indices, i)
		}
	}
	return indices, nil
}

// Mask evaluates the expression to a boolean mask of exactly the
// table's row count.
func Mask(expression string, table *survey.RespondentTable) ([]bool, error) {
	tokens, err := lex(expression)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, errors.InvalidFilter(fmt.Sprintf("unexpected token %q after expression", p.peek().text))
	}
	return node.eval(table)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokAnd
	tokOr
	tokNot
	tokIn
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		ch := rune(input[i])
		switch {
		case unicode.IsSpace(ch):
			i++
		case ch == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case ch == ',':
			tokens = append(tokens, token{tokComma, ","})
			i++
		case ch == '\'' || ch == '"':
			quote := byte(ch)
			end := i + 1
			for end < len(input) && input[end] != quote {
				end++
			}
			if end >= len(input) {
				return nil, errors.InvalidFilter("unterminated string literal")
			}
			tokens = append(tokens, token{tokString, input[i+1 : end]})
			i = end + 1
		case strings.ContainsRune("=!<>", ch):
			end := i + 1
			for end < len(input) && strings.ContainsRune("=<>", rune(input[end])) {
				end++
			}
			op := input[i:end]
			switch op {
			case "=", "==", "!=", "<>", "<", "<=", ">", ">=":
				tokens = append(tokens, token{tokOp, op})
			default:
				return nil, errors.InvalidFilter(fmt.Sprintf("unknown operator %q", op))
			}
			i = end
		case unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '-' || ch == '.':
			end := i
			for end < len(input) {
				c := rune(input[end])
				if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' || c == '.' {
					end++
					continue
				}
				break
			}
			word := input[i:end]
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{tokAnd, word})
			case "OR":
				tokens = append(tokens, token{tokOr, word})
			case "NOT":
				tokens = append(tokens, token{tokNot, word})
			case "IN":
				tokens = append(tokens, token{tokIn, word})
			default:
				if _, err := strconv.ParseFloat(word, 64); err == nil {
					tokens = append(tokens, token{tokNumber, word})
				} else {
					tokens = append(tokens, token{tokIdent, word})
				}
			}
			i = end
		default:
			return nil, errors.InvalidFilter(fmt.Sprintf("unexpected character %q", ch))
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *parser) peek() token {
	if p.atEnd() {
		return token{}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.atEnd() || p.peek().kind != kind {
		return token{}, errors.InvalidFilter(fmt.Sprintf("expected %s", what))
	}
	return p.next(), nil
}

type node interface {
	eval(table *survey.RespondentTable) ([]bool, error)
}

type boolNode struct {
	and      bool
	children []node
}

func (n *boolNode) eval(table *survey.RespondentTable) ([]bool, error) {
	out, err := n.children[0].eval(table)
	if err != nil {
		return nil, err
	}
	for _, child := range n.children[1:] {
		mask, err := child.eval(table)
		if err != nil {
			return nil, err
		}
		for i := range out {
			if n.and {
				out[i] = out[i] && mask[i]
			} else {
				out[i] = out[i] || mask[i]
			}
		}
	}
	return out, nil
}

type notNode struct {
	child node
}

func (n *notNode) eval(table *survey.RespondentTable) ([]bool, error) {
	mask, err := n.child.eval(table)
	if err != nil {
		return nil, err
	}
	for i := range mask {
		mask[i] = !mask[i]
	}
	return mask, nil
}

type compareNode struct {
	column   string
	op       string
	literals []core.Value
}

func (n *compareNode) eval(table *survey.RespondentTable) ([]bool, error) {
	column, ok := table.Column(n.column)
	if !ok {
		return nil, errors.InvalidFilter(fmt.Sprintf("filter references unknown column %q", n.column))
	}
	mask := make([]bool, len(column))
	for i, v := range column {
		mask[i] = n.matches(v)
	}
	return mask, nil
}

func (n *compareNode) matches(v core.Value) bool {
	if v.IsMissing() {
		return false
	}
	switch n.op {
	case "IN":
		for _, lit := range n.literals {
			if v.Equals(lit) {
				return true
			}
		}
		return false
	case "=", "==":
		return v.Equals(n.literals[0])
	case "!=", "<>":
		return !v.Equals(n.literals[0])
	}
	// Ordering operators need numbers on both sides.
	left, ok := v.Float()
	if !ok {
		return false
	}
	right, ok := n.literals[0].Float()
	if !ok {
		return false
	}
	switch n.op {
	case "<":
		return left < right
	case "<=":
		return left <= right
	case ">":
		return left > right
	case ">=":
		return left >= right
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []node{first}
	for !p.atEnd() && p.peek().kind == tokOr {
		p.next()
		child, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &boolNode{and: false, children: children}, nil
}

func (p *parser) parseAnd() (node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []node{first}
	for !p.atEnd() && p.peek().kind == tokAnd {
		p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &boolNode{and: true, children: children}, nil
}

func (p *parser) parseUnary() (node, error) {
	switch p.peek().kind {
	case tokNot:
		p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{child: child}, nil
	case tokLParen:
		p.next()
		child, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "closing parenthesis"); err != nil {
			return nil, err
		}
		return child, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	ident, err := p.expect(tokIdent, "column name")
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokOp:
		op := p.next().text
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &compareNode{column: ident.text, op: op, literals: []core.Value{lit}}, nil
	case tokIn:
		p.next()
		if _, err := p.expect(tokLParen, "opening parenthesis after IN"); err != nil {
			return nil, err
		}
		var literals []core.Value
		for {
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			literals = append(literals, lit)
			if p.peek().kind == tokComma {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen, "closing parenthesis after IN list"); err != nil {
			return nil, err
		}
		return &compareNode{column: ident.text, op: "IN", literals: literals}, nil
	}
	return nil, errors.InvalidFilter(fmt.Sprintf("expected operator after column %q", ident.text))
}

func (p *parser) parseLiteral() (core.Value, error) {
	switch p.peek().kind {
	case tokNumber:
		t := p.next()
		f, _ := strconv.ParseFloat(t.text, 64)
		return core.NewNumber(f), nil
	case tokString:
		return core.NewText(p.next().text), nil
	case tokIdent:
		// Bare words compare as text.
		return core.NewText(p.next().text), nil
	}
	return core.Missing(), errors.InvalidFilter("expected literal value")
}

package calc

import (
	"fmt"
	"strings"
)

// normalize parses an arithmetic expression and rewrites it as a fully
// parenthesised JavaScript expression. Operators are + - * / % and ^ (or
// **), with the usual precedence: ^ binds tighter than unary minus and is
// right-associative. Numeric literals lose their leading zeros so they are
// never read as legacy octal.
func normalize(expr string) (string, error) {
	toks, err := lex(expr)
	if err != nil {
		return "", err
	}
	p := &parser{toks: toks}
	out, err := p.expr()
	if err != nil {
		return "", err
	}
	if p.pos < len(p.toks) {
		return "", fmt.Errorf("unexpected %q", p.toks[p.pos])
	}
	return out, nil
}

// lex splits expr into numbers, operators and parentheses.
// "**" is read as "^".
func lex(expr string) ([]string, error) {
	var toks []string
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.':
			start := i
			dot := false
			for i < len(expr) && (isDigit(expr[i]) || (expr[i] == '.' && !dot)) {
				dot = dot || expr[i] == '.'
				i++
			}
			lit, err := literal(expr[start:i])
			if err != nil {
				return nil, err
			}
			toks = append(toks, lit)
		case c == '*' && i+1 < len(expr) && expr[i+1] == '*':
			toks = append(toks, "^")
			i += 2
		case strings.IndexByte("+-*/%^()", c) >= 0:
			toks = append(toks, string(c))
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

// literal strips leading zeros from the integer part of a decimal number.
func literal(s string) (string, error) {
	intPart, frac, hasDot := strings.Cut(s, ".")
	if intPart == "" && frac == "" {
		return "", fmt.Errorf("lone decimal point")
	}
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if !hasDot || frac == "" {
		return intPart, nil
	}
	return intPart + "." + frac, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNumber(tok string) bool { return tok != "" && (isDigit(tok[0]) || tok[0] == '.') }

type parser struct {
	toks []string
	pos  int
}

func (p *parser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

// expr := term (("+" | "-") term)*
func (p *parser) expr() (string, error) {
	left, err := p.term()
	if err != nil {
		return "", err
	}
	for op := p.peek(); op == "+" || op == "-"; op = p.peek() {
		p.pos++
		right, err := p.term()
		if err != nil {
			return "", err
		}
		left = "(" + left + op + right + ")"
	}
	return left, nil
}

// term := unary (("*" | "/" | "%") unary)*
func (p *parser) term() (string, error) {
	left, err := p.unary()
	if err != nil {
		return "", err
	}
	for op := p.peek(); op == "*" || op == "/" || op == "%"; op = p.peek() {
		p.pos++
		right, err := p.unary()
		if err != nil {
			return "", err
		}
		left = "(" + left + op + right + ")"
	}
	return left, nil
}

// unary := "-" unary | power
func (p *parser) unary() (string, error) {
	if p.peek() == "-" {
		p.pos++
		operand, err := p.unary()
		if err != nil {
			return "", err
		}
		return "(-" + operand + ")", nil
	}
	return p.power()
}

// power := atom ("^" unary)?
func (p *parser) power() (string, error) {
	base, err := p.atom()
	if err != nil {
		return "", err
	}
	if p.peek() != "^" {
		return base, nil
	}
	p.pos++
	exp, err := p.unary()
	if err != nil {
		return "", err
	}
	return "(" + base + "**" + exp + ")", nil
}

// atom := number | "(" expr ")"
func (p *parser) atom() (string, error) {
	tok := p.peek()
	switch {
	case isNumber(tok):
		p.pos++
		return tok, nil
	case tok == "(":
		p.pos++
		inner, err := p.expr()
		if err != nil {
			return "", err
		}
		if p.peek() != ")" {
			return "", fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return "(" + inner + ")", nil
	case tok == "":
		return "", fmt.Errorf("unexpected end of expression")
	default:
		return "", fmt.Errorf("unexpected %q", tok)
	}
}

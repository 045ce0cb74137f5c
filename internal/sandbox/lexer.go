package sandbox

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokOp // punctuation and operators
)

type token struct {
	kind tokenKind
	text string
}

// lexer tokenizes a single expression or tag body.
type lexer struct {
	src  string
	pos  int
	line int
	toks []token
}

var multiCharOps = []string{"==", "!=", "<=", ">=", "**", "//"}

// lexExpr splits an expression into tokens. line is used for error
// positions.
func lexExpr(src string, line int) ([]token, error) {
	l := &lexer{src: src, line: line}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '\'' || c == '"':
			if err := l.lexString(c); err != nil {
				return nil, err
			}
		case c >= '0' && c <= '9':
			l.lexNumber()
		case isIdentStart(rune(c)):
			l.lexIdent()
		default:
			if op := l.matchOp(); op != "" {
				l.toks = append(l.toks, token{kind: tokOp, text: op})
				l.pos += len(op)
			} else {
				return nil, syntaxErr(l.line, "unexpected character %q in expression", string(c))
			}
		}
	}
	l.toks = append(l.toks, token{kind: tokEOF})
	return l.toks, nil
}

func (l *lexer) lexString(quote byte) error {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(next)
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			l.pos += 2
			continue
		}
		if c == quote {
			l.pos++
			l.toks = append(l.toks, token{kind: tokString, text: b.String()})
			return nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return syntaxErr(l.line, "unterminated string starting at %q", l.src[start:])
}

func (l *lexer) lexNumber() {
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c >= '0' && c <= '9' {
			l.pos++
			continue
		}
		// A dot is part of the number only when a digit follows;
		// otherwise it is attribute access like 1.real.
		if c == '.' && !isFloat && l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9' {
			isFloat = true
			l.pos++
			continue
		}
		break
	}
	kind := tokInt
	if isFloat {
		kind = tokFloat
	}
	l.toks = append(l.toks, token{kind: kind, text: l.src[start:l.pos]})
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	l.toks = append(l.toks, token{kind: tokIdent, text: l.src[start:l.pos]})
}

func (l *lexer) matchOp() string {
	rest := l.src[l.pos:]
	for _, op := range multiCharOps {
		if strings.HasPrefix(rest, op) {
			return op
		}
	}
	switch rest[0] {
	case '+', '-', '*', '/', '%', '~', '<', '>', '(', ')', '[', ']', ',', ':', '|', '.', '=', '{', '}':
		return rest[:1]
	}
	return ""
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

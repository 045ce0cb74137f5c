package sandbox

import (
	"strconv"
	"strings"
)

// Template is a parsed, renderable template.
type Template struct {
	nodes []node
}

type node interface{}

type textNode struct{ text string }

type outputNode struct {
	expr expr
	line int
}

type ifBranch struct {
	cond expr
	body []node
}

type ifNode struct {
	branches []ifBranch
	elseBody []node
}

type forNode struct {
	vars []string // one name, or two for key/value unpacking
	iter expr
	body []node
	line int
}

type setNode struct {
	name string
	expr expr
}

// Parse builds a template from source. Errors carry the line of the
// offending tag.
func Parse(src string) (*Template, error) {
	segs, err := scanTemplate(src)
	if err != nil {
		return nil, err
	}
	p := &stmtParser{segs: segs}
	nodes, stop, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	if stop != "" {
		return nil, syntaxErr(p.lastLine, "unexpected {%% %s %%}", stop)
	}
	return &Template{nodes: nodes}, nil
}

type stmtParser struct {
	segs     []segment
	pos      int
	lastLine int
}

// parseNodes consumes segments until EOF or one of the stop tags,
// returning the consumed stop tag keyword.
func (p *stmtParser) parseNodes(stopTags []string) ([]node, string, error) {
	nodes := []node{}
	for p.pos < len(p.segs) {
		seg := p.segs[p.pos]
		p.lastLine = seg.line
		switch seg.kind {
		case segText:
			p.pos++
			nodes = append(nodes, textNode{text: seg.text})

		case segOutput:
			p.pos++
			e, err := parseExpression(seg.text, seg.line)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, outputNode{expr: e, line: seg.line})

		case segTag:
			keyword := firstWord(seg.text)
			for _, stop := range stopTags {
				if keyword == stop {
					p.pos++
					return nodes, keyword, nil
				}
			}
			stmt, err := p.parseTag(seg)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, stmt)
		}
	}
	return nodes, "", nil
}

func (p *stmtParser) parseTag(seg segment) (node, error) {
	keyword := firstWord(seg.text)
	rest := strings.TrimSpace(seg.text[len(keyword):])

	switch keyword {
	case "if":
		return p.parseIf(seg, rest)
	case "for":
		return p.parseFor(seg, rest)
	case "set":
		return p.parseSet(seg, rest)
	case "elif", "else", "endif", "endfor":
		return nil, syntaxErr(seg.line, "unexpected {%% %s %%}", keyword)
	default:
		return nil, syntaxErr(seg.line, "unknown tag {%% %s %%}", keyword)
	}
}

func (p *stmtParser) parseIf(seg segment, condSrc string) (node, error) {
	out := ifNode{}
	for {
		cond, err := parseExpression(condSrc, seg.line)
		if err != nil {
			return nil, err
		}
		p.pos++
		body, stop, err := p.parseNodes([]string{"elif", "else", "endif"})
		if err != nil {
			return nil, err
		}
		out.branches = append(out.branches, ifBranch{cond: cond, body: body})

		switch stop {
		case "elif":
			seg = p.segs[p.pos-1]
			condSrc = strings.TrimSpace(seg.text[len("elif"):])
			p.pos-- // parseNodes consumed the elif tag; reprocess its body below
			continue
		case "else":
			elseBody, stop, err := p.parseNodes([]string{"endif"})
			if err != nil {
				return nil, err
			}
			if stop != "endif" {
				return nil, syntaxErr(seg.line, "unclosed {%% if %%}: missing {%% endif %%}")
			}
			out.elseBody = elseBody
			return out, nil
		case "endif":
			return out, nil
		default:
			return nil, syntaxErr(seg.line, "unclosed {%% if %%}: missing {%% endif %%}")
		}
	}
}

func (p *stmtParser) parseFor(seg segment, rest string) (node, error) {
	inIdx := findKeyword(rest, "in")
	if inIdx < 0 {
		return nil, syntaxErr(seg.line, "malformed {%% for %%}: missing 'in'")
	}
	varPart := strings.TrimSpace(rest[:inIdx])
	iterSrc := strings.TrimSpace(rest[inIdx+2:])

	var vars []string
	for _, name := range strings.Split(varPart, ",") {
		name = strings.TrimSpace(name)
		if !isIdentifier(name) {
			return nil, syntaxErr(seg.line, "invalid loop variable %q", name)
		}
		vars = append(vars, name)
	}
	if len(vars) == 0 || len(vars) > 2 {
		return nil, syntaxErr(seg.line, "loops support one or two variables, got %d", len(vars))
	}

	iter, err := parseExpression(iterSrc, seg.line)
	if err != nil {
		return nil, err
	}
	p.pos++
	body, stop, err := p.parseNodes([]string{"endfor"})
	if err != nil {
		return nil, err
	}
	if stop != "endfor" {
		return nil, syntaxErr(seg.line, "unclosed {%% for %%}: missing {%% endfor %%}")
	}
	return forNode{vars: vars, iter: iter, body: body, line: seg.line}, nil
}

func (p *stmtParser) parseSet(seg segment, rest string) (node, error) {
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		return nil, syntaxErr(seg.line, "malformed {%% set %%}: missing '='")
	}
	name := strings.TrimSpace(rest[:eq])
	if !isIdentifier(name) {
		return nil, syntaxErr(seg.line, "invalid variable name %q in {%% set %%}", name)
	}
	e, err := parseExpression(strings.TrimSpace(rest[eq+1:]), seg.line)
	if err != nil {
		return nil, err
	}
	p.pos++
	return setNode{name: name, expr: e}, nil
}

func firstWord(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// findKeyword locates a bare keyword (surrounded by whitespace) at
// the top level of the tag body.
func findKeyword(s, kw string) int {
	depth := 0
	for i := 0; i+len(kw) <= len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
		if depth != 0 || !strings.HasPrefix(s[i:], kw) {
			continue
		}
		beforeOK := i == 0 || s[i-1] == ' ' || s[i-1] == '\t'
		afterIdx := i + len(kw)
		afterOK := afterIdx == len(s) || s[afterIdx] == ' ' || s[afterIdx] == '\t'
		if beforeOK && afterOK {
			return i
		}
	}
	return -1
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if i > 0 && !isIdentPart(r) {
			return false
		}
	}
	return true
}

// ---- expression parsing ----

type exprParser struct {
	toks []token
	pos  int
	line int
}

func parseExpression(src string, line int) (expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, syntaxErr(line, "empty expression")
	}
	toks, err := lexExpr(src, line)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks, line: line}
	e, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, syntaxErr(line, "unexpected %q after expression", p.peek().text)
	}
	return e, nil
}

func (p *exprParser) peek() token  { return p.toks[p.pos] }
func (p *exprParser) next() token  { t := p.toks[p.pos]; p.pos++; return t }
func (p *exprParser) atOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}
func (p *exprParser) atKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == kw
}

func (p *exprParser) expectOp(text string) error {
	if !p.atOp(text) {
		return syntaxErr(p.line, "expected %q, found %q", text, p.peek().text)
	}
	p.pos++
	return nil
}

// parseTernary handles "a if cond else b".
func (p *exprParser) parseTernary() (expr, error) {
	then, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atKeyword("if") {
		return then, nil
	}
	p.pos++
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.atKeyword("else") {
		return nil, syntaxErr(p.line, "conditional expression is missing 'else'")
	}
	p.pos++
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return condExpr{cond: cond, then: then, els: els}, nil
}

func (p *exprParser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("or") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = boolExpr{op: "or", x: left, y: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("and") {
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = boolExpr{op: "and", x: left, y: right}
	}
	return left, nil
}

func (p *exprParser) parseNot() (expr, error) {
	if p.atKeyword("not") {
		p.pos++
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notExpr{x: x}, nil
	}
	return p.parseComparison()
}

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *exprParser) parseComparison() (expr, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokOp && compareOps[t.text]:
			p.pos++
			right, err := p.parseArith()
			if err != nil {
				return nil, err
			}
			left = compareExpr{op: t.text, x: left, y: right, line: p.line}
		case p.atKeyword("in"):
			p.pos++
			right, err := p.parseArith()
			if err != nil {
				return nil, err
			}
			left = containsExpr{x: left, y: right, negate: false, line: p.line}
		case p.atKeyword("not"):
			// "not in"
			save := p.pos
			p.pos++
			if !p.atKeyword("in") {
				p.pos = save
				return left, nil
			}
			p.pos++
			right, err := p.parseArith()
			if err != nil {
				return nil, err
			}
			left = containsExpr{x: left, y: right, negate: true, line: p.line}
		case p.atKeyword("is"):
			p.pos++
			negate := false
			if p.atKeyword("not") {
				p.pos++
				negate = true
			}
			name := p.next()
			if name.kind != tokIdent {
				return nil, syntaxErr(p.line, "expected test name after 'is'")
			}
			var args []expr
			if p.atOp("(") {
				args, err = p.parseArgs()
				if err != nil {
					return nil, err
				}
			} else if k := p.peek().kind; k == tokInt || k == tokFloat || k == tokString {
				// Bare test argument, as in "is divisibleby 7".
				arg, err := p.parsePrimary()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
			left = isExpr{x: left, test: name.text, args: args, negate: negate, line: p.line}
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseArith() (expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.atOp("+") || p.atOp("-") || p.atOp("~") {
		op := p.next().text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: op, x: left, y: right, line: p.line}
	}
	return left, nil
}

func (p *exprParser) parseTerm() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atOp("*") || p.atOp("/") || p.atOp("//") || p.atOp("%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryExpr{op: op, x: left, y: right, line: p.line}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (expr, error) {
	if p.atOp("-") || p.atOp("+") {
		op := p.next().text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Filters bind looser than unary minus, so -5|abs is abs(-5).
		return p.parseFilterChain(unaryExpr{op: op, x: x, line: p.line})
	}
	return p.parsePower()
}

func (p *exprParser) parseFilterChain(e expr) (expr, error) {
	for p.atOp("|") {
		p.pos++
		name := p.next()
		if name.kind != tokIdent {
			return nil, syntaxErr(p.line, "expected filter name after '|'")
		}
		var args []expr
		var err error
		if p.atOp("(") {
			args, err = p.parseArgs()
			if err != nil {
				return nil, err
			}
		}
		e = filterExpr{x: e, name: name.text, args: args, line: p.line}
	}
	return e, nil
}

func (p *exprParser) parsePower() (expr, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.atOp("**") {
		p.pos++
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryExpr{op: "**", x: base, y: exp, line: p.line}, nil
	}
	return base, nil
}

// parsePostfix chains attribute access, indexing, slicing, method
// calls, and filters onto a primary expression.
func (p *exprParser) parsePostfix() (expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atOp("."):
			p.pos++
			name := p.next()
			if name.kind != tokIdent {
				return nil, syntaxErr(p.line, "expected attribute name after '.'")
			}
			if p.atOp("(") {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				e = methodExpr{obj: e, name: name.text, args: args, line: p.line}
			} else {
				e = attrExpr{obj: e, name: name.text, line: p.line}
			}

		case p.atOp("["):
			p.pos++
			var lo, hi expr
			if !p.atOp(":") {
				lo, err = p.parseTernary()
				if err != nil {
					return nil, err
				}
			}
			if p.atOp(":") {
				p.pos++
				if !p.atOp("]") {
					hi, err = p.parseTernary()
					if err != nil {
						return nil, err
					}
				}
				if err := p.expectOp("]"); err != nil {
					return nil, err
				}
				e = sliceExpr{obj: e, lo: lo, hi: hi, line: p.line}
			} else {
				if err := p.expectOp("]"); err != nil {
					return nil, err
				}
				e = indexExpr{obj: e, idx: lo, line: p.line}
			}

		case p.atOp("|"):
			e, err = p.parseFilterChain(e)
			if err != nil {
				return nil, err
			}

		default:
			return e, nil
		}
	}
}

func (p *exprParser) parseArgs() ([]expr, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	args := []expr{}
	if p.atOp(")") {
		p.pos++
		return args, nil
	}
	for {
		a, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.atOp(",") {
			p.pos++
			continue
		}
		break
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *exprParser) parsePrimary() (expr, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, syntaxErr(p.line, "invalid integer %q", t.text)
		}
		return literalExpr{val: n}, nil

	case tokFloat:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, syntaxErr(p.line, "invalid number %q", t.text)
		}
		return literalExpr{val: f}, nil

	case tokString:
		return literalExpr{val: t.text}, nil

	case tokIdent:
		switch t.text {
		case "true", "True":
			return literalExpr{val: true}, nil
		case "false", "False":
			return literalExpr{val: false}, nil
		case "none", "None", "null":
			return literalExpr{val: nil}, nil
		}
		if p.atOp("(") {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return funcExpr{name: t.text, args: args, line: p.line}, nil
		}
		return varExpr{name: t.text, line: p.line}, nil

	case tokOp:
		switch t.text {
		case "(":
			e, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return e, nil
		case "[":
			items := []expr{}
			for !p.atOp("]") {
				item, err := p.parseTernary()
				if err != nil {
					return nil, err
				}
				items = append(items, item)
				if p.atOp(",") {
					p.pos++
				}
			}
			p.pos++
			return listExpr{items: items}, nil
		}
	}
	return nil, syntaxErr(p.line, "unexpected token %q", t.text)
}

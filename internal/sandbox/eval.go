package sandbox

import (
	"math"
	"strings"
)

// maxRenderOps bounds total evaluation steps so a template cannot
// spin the renderer indefinitely.
const maxRenderOps = 5_000_000

// Render parses and evaluates a template against a context. The
// context must only contain restricted values; anything else is
// opaque to the interpreter and renders via its default formatting.
func Render(template string, context map[string]any) (string, error) {
	t, err := Parse(template)
	if err != nil {
		return "", err
	}
	return t.Render(context)
}

// Render evaluates a parsed template.
func (t *Template) Render(context map[string]any) (string, error) {
	env := &renderEnv{vars: map[string]any{}}
	for k, v := range context {
		env.vars[k] = v
	}
	var b strings.Builder
	if err := renderNodes(t.nodes, env, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

type renderEnv struct {
	vars map[string]any
	ops  int
}

func (e *renderEnv) step(line int) error {
	e.ops++
	if e.ops > maxRenderOps {
		return securityErr(line, "template exceeded the evaluation budget")
	}
	return nil
}

func renderNodes(nodes []node, env *renderEnv, b *strings.Builder) error {
	for _, n := range nodes {
		switch t := n.(type) {
		case textNode:
			b.WriteString(t.text)

		case outputNode:
			if err := env.step(t.line); err != nil {
				return err
			}
			v, err := t.expr.eval(env)
			if err != nil {
				return err
			}
			if u, ok := v.(undefined); ok {
				return undefinedErr(t.line, "'%s' is undefined", u.name)
			}
			b.WriteString(formatValue(v))

		case ifNode:
			if err := renderIf(t, env, b); err != nil {
				return err
			}

		case forNode:
			if err := renderFor(t, env, b); err != nil {
				return err
			}

		case setNode:
			v, err := t.expr.eval(env)
			if err != nil {
				return err
			}
			env.vars[t.name] = v
		}
	}
	return nil
}

func renderIf(n ifNode, env *renderEnv, b *strings.Builder) error {
	for _, branch := range n.branches {
		v, err := branch.cond.eval(env)
		if err != nil {
			return err
		}
		if truthy(v) {
			return renderNodes(branch.body, env, b)
		}
	}
	return renderNodes(n.elseBody, env, b)
}

func renderFor(n forNode, env *renderEnv, b *strings.Builder) error {
	iter, err := n.iter.eval(env)
	if err != nil {
		return err
	}
	items, err := iterate(iter, n.line)
	if err != nil {
		return err
	}

	saved := map[string]any{}
	shadowed := map[string]bool{}
	names := append([]string{"loop"}, n.vars...)
	for _, name := range names {
		if old, ok := env.vars[name]; ok {
			saved[name] = old
			shadowed[name] = true
		}
	}

	total := int64(len(items))
	for i, item := range items {
		if err := env.step(n.line); err != nil {
			return err
		}
		idx := int64(i)
		env.vars["loop"] = map[string]any{
			"index":     idx + 1,
			"index0":    idx,
			"revindex":  total - idx,
			"revindex0": total - idx - 1,
			"first":     i == 0,
			"last":      idx == total-1,
			"length":    total,
		}
		if len(n.vars) == 1 {
			env.vars[n.vars[0]] = item
		} else {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				return typeErr(n.line, "cannot unpack %s into two loop variables", typeName(item))
			}
			env.vars[n.vars[0]] = pair[0]
			env.vars[n.vars[1]] = pair[1]
		}
		if err := renderNodes(n.body, env, b); err != nil {
			return err
		}
	}

	for _, name := range names {
		if shadowed[name] {
			env.vars[name] = saved[name]
		} else {
			delete(env.vars, name)
		}
	}
	return nil
}

// iterate yields the items of a loop target. Maps iterate over their
// keys in sorted order; strings iterate by character.
func iterate(v any, line int) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		keys := sortedKeys(t)
		items := make([]any, 0, len(keys))
		for _, k := range keys {
			items = append(items, k)
		}
		return items, nil
	case string:
		items := make([]any, 0, len(t))
		for _, r := range t {
			items = append(items, string(r))
		}
		return items, nil
	case undefined:
		return nil, undefinedErr(line, "'%s' is undefined and cannot be iterated", t.name)
	default:
		return nil, typeErr(line, "%s is not iterable", typeName(v))
	}
}

// ---- expression nodes ----

type expr interface {
	eval(env *renderEnv) (any, error)
}

type literalExpr struct{ val any }

func (e literalExpr) eval(*renderEnv) (any, error) { return e.val, nil }

type varExpr struct {
	name string
	line int
}

func (e varExpr) eval(env *renderEnv) (any, error) {
	if strings.HasPrefix(e.name, "_") {
		return nil, securityErr(e.line, "access to %q is not allowed", e.name)
	}
	if v, ok := env.vars[e.name]; ok {
		return v, nil
	}
	return undefined{name: e.name}, nil
}

type attrExpr struct {
	obj  expr
	name string
	line int
}

func (e attrExpr) eval(env *renderEnv) (any, error) {
	if strings.HasPrefix(e.name, "_") {
		return nil, securityErr(e.line, "access to attribute %q is not allowed", e.name)
	}
	obj, err := e.obj.eval(env)
	if err != nil {
		return nil, err
	}
	switch t := obj.(type) {
	case map[string]any:
		if v, ok := t[e.name]; ok {
			return v, nil
		}
		return undefined{name: e.name}, nil
	case undefined:
		return nil, undefinedErr(e.line, "'%s' is undefined, cannot read attribute %q", t.name, e.name)
	case nil:
		return undefined{name: e.name}, nil
	default:
		return nil, typeErr(e.line, "%s has no attribute %q", typeName(obj), e.name)
	}
}

type indexExpr struct {
	obj  expr
	idx  expr
	line int
}

func (e indexExpr) eval(env *renderEnv) (any, error) {
	obj, err := e.obj.eval(env)
	if err != nil {
		return nil, err
	}
	idx, err := e.idx.eval(env)
	if err != nil {
		return nil, err
	}

	switch t := obj.(type) {
	case []any:
		i, ok := idx.(int64)
		if !ok {
			return nil, typeErr(e.line, "list index must be an integer, got %s", typeName(idx))
		}
		i = normalizeIndex(i, int64(len(t)))
		if i < 0 || i >= int64(len(t)) {
			return nil, typeErr(e.line, "list index %d out of range", i)
		}
		return t[i], nil

	case map[string]any:
		key, ok := idx.(string)
		if !ok {
			return nil, typeErr(e.line, "dict key must be a string, got %s", typeName(idx))
		}
		if strings.HasPrefix(key, "_") {
			return nil, securityErr(e.line, "access to key %q is not allowed", key)
		}
		if v, ok := t[key]; ok {
			return v, nil
		}
		return undefined{name: key}, nil

	case string:
		i, ok := idx.(int64)
		if !ok {
			return nil, typeErr(e.line, "string index must be an integer, got %s", typeName(idx))
		}
		runes := []rune(t)
		i = normalizeIndex(i, int64(len(runes)))
		if i < 0 || i >= int64(len(runes)) {
			return nil, typeErr(e.line, "string index %d out of range", i)
		}
		return string(runes[i]), nil

	case undefined:
		return nil, undefinedErr(e.line, "'%s' is undefined and cannot be indexed", t.name)
	default:
		return nil, typeErr(e.line, "%s is not subscriptable", typeName(obj))
	}
}

type sliceExpr struct {
	obj  expr
	lo   expr
	hi   expr
	line int
}

func (e sliceExpr) eval(env *renderEnv) (any, error) {
	obj, err := e.obj.eval(env)
	if err != nil {
		return nil, err
	}
	lo, hi, err := e.bounds(env)
	if err != nil {
		return nil, err
	}

	switch t := obj.(type) {
	case []any:
		from, to := clampSlice(lo, hi, int64(len(t)))
		out := make([]any, to-from)
		copy(out, t[from:to])
		return out, nil
	case string:
		runes := []rune(t)
		from, to := clampSlice(lo, hi, int64(len(runes)))
		return string(runes[from:to]), nil
	case undefined:
		return nil, undefinedErr(e.line, "'%s' is undefined and cannot be sliced", t.name)
	default:
		return nil, typeErr(e.line, "%s cannot be sliced", typeName(obj))
	}
}

func (e sliceExpr) bounds(env *renderEnv) (lo, hi *int64, err error) {
	if e.lo != nil {
		v, err := e.lo.eval(env)
		if err != nil {
			return nil, nil, err
		}
		n, ok := v.(int64)
		if !ok {
			return nil, nil, typeErr(e.line, "slice bound must be an integer, got %s", typeName(v))
		}
		lo = &n
	}
	if e.hi != nil {
		v, err := e.hi.eval(env)
		if err != nil {
			return nil, nil, err
		}
		n, ok := v.(int64)
		if !ok {
			return nil, nil, typeErr(e.line, "slice bound must be an integer, got %s", typeName(v))
		}
		hi = &n
	}
	return lo, hi, nil
}

func normalizeIndex(i, length int64) int64 {
	if i < 0 {
		return i + length
	}
	return i
}

func clampSlice(lo, hi *int64, length int64) (int64, int64) {
	from := int64(0)
	to := length
	if lo != nil {
		from = normalizeIndex(*lo, length)
	}
	if hi != nil {
		to = normalizeIndex(*hi, length)
	}
	if from < 0 {
		from = 0
	}
	if to > length {
		to = length
	}
	if from > length {
		from = length
	}
	if to < from {
		to = from
	}
	return from, to
}

type unaryExpr struct {
	op   string
	x    expr
	line int
}

func (e unaryExpr) eval(env *renderEnv) (any, error) {
	v, err := e.x.eval(env)
	if err != nil {
		return nil, err
	}
	if e.op == "+" {
		if _, ok := asFloat(v); ok {
			return v, nil
		}
		return nil, typeErr(e.line, "cannot apply unary '+' to %s", typeName(v))
	}
	switch t := v.(type) {
	case int64:
		return -t, nil
	case float64:
		return -t, nil
	default:
		return nil, typeErr(e.line, "cannot negate %s", typeName(v))
	}
}

type binaryExpr struct {
	op   string
	x    expr
	y    expr
	line int
}

func (e binaryExpr) eval(env *renderEnv) (any, error) {
	x, err := e.x.eval(env)
	if err != nil {
		return nil, err
	}
	y, err := e.y.eval(env)
	if err != nil {
		return nil, err
	}
	if u, ok := x.(undefined); ok {
		return nil, undefinedErr(e.line, "'%s' is undefined", u.name)
	}
	if u, ok := y.(undefined); ok {
		return nil, undefinedErr(e.line, "'%s' is undefined", u.name)
	}

	switch e.op {
	case "~":
		return formatValue(x) + formatValue(y), nil

	case "+":
		if xs, ok := x.(string); ok {
			ys, ok := y.(string)
			if !ok {
				return nil, typeErr(e.line, "cannot concatenate string and %s", typeName(y))
			}
			return xs + ys, nil
		}
		if xl, ok := x.([]any); ok {
			yl, ok := y.([]any)
			if !ok {
				return nil, typeErr(e.line, "cannot concatenate list and %s", typeName(y))
			}
			out := make([]any, 0, len(xl)+len(yl))
			out = append(out, xl...)
			return append(out, yl...), nil
		}
		if xi, yi, ok := bothInts(x, y); ok {
			return xi + yi, nil
		}
		return numericOp(e.line, "+", x, y, func(a, b float64) float64 { return a + b })

	case "-":
		if xi, yi, ok := bothInts(x, y); ok {
			return xi - yi, nil
		}
		return numericOp(e.line, "-", x, y, func(a, b float64) float64 { return a - b })

	case "*":
		if xi, yi, ok := bothInts(x, y); ok {
			return xi * yi, nil
		}
		return numericOp(e.line, "*", x, y, func(a, b float64) float64 { return a * b })

	case "/":
		yf, ok := asFloat(y)
		if !ok {
			return nil, typeErr(e.line, "unsupported operand for '/': %s", typeName(y))
		}
		if yf == 0 {
			return nil, typeErr(e.line, "division by zero")
		}
		return numericOp(e.line, "/", x, y, func(a, b float64) float64 { return a / b })

	case "//":
		if xi, yi, ok := bothInts(x, y); ok {
			if yi == 0 {
				return nil, typeErr(e.line, "division by zero")
			}
			return int64(math.Floor(float64(xi) / float64(yi))), nil
		}
		if yf, ok := asFloat(y); ok && yf == 0 {
			return nil, typeErr(e.line, "division by zero")
		}
		return numericOp(e.line, "//", x, y, func(a, b float64) float64 { return math.Floor(a / b) })

	case "%":
		if xi, yi, ok := bothInts(x, y); ok {
			if yi == 0 {
				return nil, typeErr(e.line, "modulo by zero")
			}
			m := xi % yi
			if m != 0 && (m < 0) != (yi < 0) {
				m += yi
			}
			return m, nil
		}
		if yf, ok := asFloat(y); ok && yf == 0 {
			return nil, typeErr(e.line, "modulo by zero")
		}
		return numericOp(e.line, "%", x, y, math.Mod)

	case "**":
		if xi, yi, ok := bothInts(x, y); ok && yi >= 0 {
			return intPow(xi, yi), nil
		}
		return numericOp(e.line, "**", x, y, math.Pow)
	}
	return nil, typeErr(e.line, "unknown operator %q", e.op)
}

func numericOp(line int, op string, x, y any, f func(a, b float64) float64) (any, error) {
	xf, ok := asFloat(x)
	if !ok {
		return nil, typeErr(line, "unsupported operand for %q: %s", op, typeName(x))
	}
	yf, ok := asFloat(y)
	if !ok {
		return nil, typeErr(line, "unsupported operand for %q: %s", op, typeName(y))
	}
	return f(xf, yf), nil
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}

type compareExpr struct {
	op   string
	x    expr
	y    expr
	line int
}

func (e compareExpr) eval(env *renderEnv) (any, error) {
	x, err := e.x.eval(env)
	if err != nil {
		return nil, err
	}
	y, err := e.y.eval(env)
	if err != nil {
		return nil, err
	}

	// Equality against undefined is allowed and always false, so
	// templates can probe optional fields without erroring.
	if isUndefined(x) || isUndefined(y) {
		switch e.op {
		case "==":
			return false, nil
		case "!=":
			return true, nil
		}
		u := x
		if !isUndefined(u) {
			u = y
		}
		return nil, undefinedErr(e.line, "'%s' is undefined", u.(undefined).name)
	}

	switch e.op {
	case "==":
		return valuesEqual(x, y), nil
	case "!=":
		return !valuesEqual(x, y), nil
	}

	cmp, ok := compareValues(x, y)
	if !ok {
		return nil, typeErr(e.line, "cannot compare %s with %s", typeName(x), typeName(y))
	}
	switch e.op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return nil, typeErr(e.line, "unknown comparison %q", e.op)
}

type containsExpr struct {
	x      expr
	y      expr
	negate bool
	line   int
}

func (e containsExpr) eval(env *renderEnv) (any, error) {
	x, err := e.x.eval(env)
	if err != nil {
		return nil, err
	}
	y, err := e.y.eval(env)
	if err != nil {
		return nil, err
	}

	var found bool
	switch t := y.(type) {
	case string:
		s, ok := x.(string)
		if !ok {
			return nil, typeErr(e.line, "'in <string>' requires a string, got %s", typeName(x))
		}
		found = strings.Contains(t, s)
	case []any:
		for _, item := range t {
			if valuesEqual(item, x) {
				found = true
				break
			}
		}
	case map[string]any:
		key, ok := x.(string)
		if !ok {
			return nil, typeErr(e.line, "'in <dict>' requires a string key, got %s", typeName(x))
		}
		_, found = t[key]
	case undefined:
		found = false
	default:
		return nil, typeErr(e.line, "'in' not supported for %s", typeName(y))
	}
	if e.negate {
		return !found, nil
	}
	return found, nil
}

type isExpr struct {
	x      expr
	test   string
	args   []expr
	negate bool
	line   int
}

func (e isExpr) eval(env *renderEnv) (any, error) {
	v, err := e.x.eval(env)
	if err != nil {
		return nil, err
	}

	var result bool
	switch e.test {
	case "divisibleby":
		if len(e.args) != 1 {
			return nil, typeErr(e.line, "divisibleby expects one argument")
		}
		arg, err := e.args[0].eval(env)
		if err != nil {
			return nil, err
		}
		n, ok1 := v.(int64)
		d, ok2 := arg.(int64)
		if !ok1 || !ok2 {
			return nil, typeErr(e.line, "divisibleby requires integers")
		}
		if d == 0 {
			return nil, typeErr(e.line, "divisibleby zero")
		}
		result = n%d == 0
	case "defined":
		result = !isUndefined(v)
	case "undefined":
		result = isUndefined(v)
	case "none":
		result = v == nil
	case "number":
		_, isBool := v.(bool)
		_, ok := asFloat(v)
		result = ok && !isBool
	case "string":
		_, result = v.(string)
	case "sequence", "iterable":
		switch v.(type) {
		case []any, string, map[string]any:
			result = true
		}
	case "mapping":
		_, result = v.(map[string]any)
	case "boolean":
		_, result = v.(bool)
	case "even":
		n, ok := v.(int64)
		if !ok {
			return nil, typeErr(e.line, "'is even' requires an integer")
		}
		result = n%2 == 0
	case "odd":
		n, ok := v.(int64)
		if !ok {
			return nil, typeErr(e.line, "'is odd' requires an integer")
		}
		result = n%2 != 0
	default:
		return nil, syntaxErr(e.line, "unknown test %q", e.test)
	}
	if e.negate {
		return !result, nil
	}
	return result, nil
}

type boolExpr struct {
	op string
	x  expr
	y  expr
}

func (e boolExpr) eval(env *renderEnv) (any, error) {
	x, err := e.x.eval(env)
	if err != nil {
		return nil, err
	}
	// and/or return an operand, not a coerced boolean, so
	// "name or 'Unknown'" substitutes defaults.
	if e.op == "and" {
		if !truthy(x) {
			return x, nil
		}
	} else {
		if truthy(x) {
			return x, nil
		}
	}
	return e.y.eval(env)
}

type notExpr struct{ x expr }

func (e notExpr) eval(env *renderEnv) (any, error) {
	v, err := e.x.eval(env)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

type condExpr struct {
	cond expr
	then expr
	els  expr
}

func (e condExpr) eval(env *renderEnv) (any, error) {
	c, err := e.cond.eval(env)
	if err != nil {
		return nil, err
	}
	if truthy(c) {
		return e.then.eval(env)
	}
	return e.els.eval(env)
}

type listExpr struct{ items []expr }

func (e listExpr) eval(env *renderEnv) (any, error) {
	out := make([]any, 0, len(e.items))
	for _, item := range e.items {
		v, err := item.eval(env)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type filterExpr struct {
	x    expr
	name string
	args []expr
	line int
}

func (e filterExpr) eval(env *renderEnv) (any, error) {
	v, err := e.x.eval(env)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(e.args))
	for _, a := range e.args {
		av, err := a.eval(env)
		if err != nil {
			return nil, err
		}
		args = append(args, av)
	}
	return applyFilter(e.name, v, args, e.line)
}

type methodExpr struct {
	obj  expr
	name string
	args []expr
	line int
}

func (e methodExpr) eval(env *renderEnv) (any, error) {
	if strings.HasPrefix(e.name, "_") {
		return nil, securityErr(e.line, "access to method %q is not allowed", e.name)
	}
	obj, err := e.obj.eval(env)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(e.args))
	for _, a := range e.args {
		av, err := a.eval(env)
		if err != nil {
			return nil, err
		}
		args = append(args, av)
	}
	return callMethod(obj, e.name, args, e.line)
}

type funcExpr struct {
	name string
	args []expr
	line int
}

func (e funcExpr) eval(env *renderEnv) (any, error) {
	args := make([]any, 0, len(e.args))
	for _, a := range e.args {
		av, err := a.eval(env)
		if err != nil {
			return nil, err
		}
		args = append(args, av)
	}
	return callFunction(e.name, args, e.line)
}

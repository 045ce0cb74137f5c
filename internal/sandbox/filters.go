package sandbox

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// maxRangeLen caps the size of lists produced by range() so a
// template cannot allocate unbounded memory before the loop even
// starts.
const maxRangeLen = 100_000

// applyFilter dispatches the allow-listed filters. Unknown filter
// names are a security violation rather than a typo, matching the
// closed-world stance of the rest of the interpreter.
func applyFilter(name string, v any, args []any, line int) (any, error) {
	switch name {
	case "default", "d":
		return filterDefault(v, args)
	case "length", "count":
		return filterLength(v, line)
	case "upper":
		s, err := wantString(name, v, line)
		if err != nil {
			return nil, err
		}
		return strings.ToUpper(s), nil
	case "lower":
		s, err := wantString(name, v, line)
		if err != nil {
			return nil, err
		}
		return strings.ToLower(s), nil
	case "title":
		s, err := wantString(name, v, line)
		if err != nil {
			return nil, err
		}
		return titleWords(s), nil
	case "capitalize":
		s, err := wantString(name, v, line)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return s, nil
		}
		return strings.ToUpper(s[:1]) + strings.ToLower(s[1:]), nil
	case "trim":
		s, err := wantString(name, v, line)
		if err != nil {
			return nil, err
		}
		return strings.TrimSpace(s), nil
	case "replace":
		return filterReplace(v, args, line)
	case "truncate":
		return filterTruncate(v, args, line)
	case "join":
		return filterJoin(v, args, line)
	case "first":
		return filterFirst(v, line)
	case "last":
		return filterLast(v, line)
	case "sort":
		return filterSort(v, line)
	case "abs":
		return filterAbs(v, line)
	case "round":
		return filterRound(v, args, line)
	case "int":
		return filterInt(v, args)
	case "float":
		return filterFloat(v, args)
	case "string":
		return formatValue(v), nil
	case "safe":
		// Output is not HTML-escaped, so safe is the identity.
		return v, nil
	default:
		return nil, securityErr(line, "unknown filter %q", name)
	}
}

func filterDefault(v any, args []any) (any, error) {
	fallback := any("")
	if len(args) > 0 {
		fallback = args[0]
	}
	useOnFalsy := len(args) > 1 && truthy(args[1])
	if isUndefined(v) || (useOnFalsy && !truthy(v)) {
		return fallback, nil
	}
	return v, nil
}

func filterLength(v any, line int) (any, error) {
	switch t := v.(type) {
	case string:
		return int64(len([]rune(t))), nil
	case []any:
		return int64(len(t)), nil
	case map[string]any:
		return int64(len(t)), nil
	default:
		return nil, typeErr(line, "%s has no length", typeName(v))
	}
}

func filterReplace(v any, args []any, line int) (any, error) {
	s, err := wantString("replace", v, line)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, typeErr(line, "replace expects old and new strings")
	}
	old, ok1 := args[0].(string)
	repl, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, typeErr(line, "replace arguments must be strings")
	}
	return strings.ReplaceAll(s, old, repl), nil
}

func filterTruncate(v any, args []any, line int) (any, error) {
	s, err := wantString("truncate", v, line)
	if err != nil {
		return nil, err
	}
	length := int64(255)
	if len(args) > 0 {
		n, ok := args[0].(int64)
		if !ok {
			return nil, typeErr(line, "truncate length must be an integer")
		}
		length = n
	}
	killwords := len(args) > 1 && truthy(args[1])
	end := "..."
	if len(args) > 2 {
		e, ok := args[2].(string)
		if !ok {
			return nil, typeErr(line, "truncate suffix must be a string")
		}
		end = e
	}

	runes := []rune(s)
	if int64(len(runes)) <= length+5 {
		return s, nil
	}
	cut := length - int64(len([]rune(end)))
	if cut < 0 {
		cut = 0
	}
	head := string(runes[:cut])
	if !killwords {
		if i := strings.LastIndexByte(head, ' '); i > 0 {
			head = head[:i]
		}
	}
	return head + end, nil
}

func filterJoin(v any, args []any, line int) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, typeErr(line, "join expects a list, got %s", typeName(v))
	}
	sep := ""
	if len(args) > 0 {
		s, ok := args[0].(string)
		if !ok {
			return nil, typeErr(line, "join separator must be a string")
		}
		sep = s
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = formatValue(item)
	}
	return strings.Join(parts, sep), nil
}

func filterFirst(v any, line int) (any, error) {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return undefined{name: "first"}, nil
		}
		return t[0], nil
	case string:
		runes := []rune(t)
		if len(runes) == 0 {
			return undefined{name: "first"}, nil
		}
		return string(runes[0]), nil
	default:
		return nil, typeErr(line, "first expects a list or string, got %s", typeName(v))
	}
}

func filterLast(v any, line int) (any, error) {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return undefined{name: "last"}, nil
		}
		return t[len(t)-1], nil
	case string:
		runes := []rune(t)
		if len(runes) == 0 {
			return undefined{name: "last"}, nil
		}
		return string(runes[len(runes)-1]), nil
	default:
		return nil, typeErr(line, "last expects a list or string, got %s", typeName(v))
	}
}

func filterSort(v any, line int) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, typeErr(line, "sort expects a list, got %s", typeName(v))
	}
	out := make([]any, len(items))
	copy(out, items)
	var sortErr error
	sortSlice(out, func(a, b any) bool {
		cmp, ok := compareValues(a, b)
		if !ok && sortErr == nil {
			sortErr = typeErr(line, "cannot sort %s with %s", typeName(a), typeName(b))
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

func filterAbs(v any, line int) (any, error) {
	switch t := v.(type) {
	case int64:
		if t < 0 {
			return -t, nil
		}
		return t, nil
	case float64:
		return math.Abs(t), nil
	default:
		return nil, typeErr(line, "abs expects a number, got %s", typeName(v))
	}
}

func filterRound(v any, args []any, line int) (any, error) {
	f, ok := asFloat(v)
	if !ok {
		return nil, typeErr(line, "round expects a number, got %s", typeName(v))
	}
	precision := int64(0)
	if len(args) > 0 {
		p, ok := args[0].(int64)
		if !ok {
			return nil, typeErr(line, "round precision must be an integer")
		}
		precision = p
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(f*scale) / scale, nil
}

func filterInt(v any, args []any) (any, error) {
	fallback := int64(0)
	if len(args) > 0 {
		if n, ok := args[0].(int64); ok {
			fallback = n
		}
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case bool:
		return boolInt(t), nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return int64(f), nil
		}
		return fallback, nil
	default:
		return fallback, nil
	}
}

func filterFloat(v any, args []any) (any, error) {
	fallback := float64(0)
	if len(args) > 0 {
		if f, ok := asFloat(args[0]); ok {
			fallback = f
		}
	}
	switch t := v.(type) {
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case bool:
		return float64(boolInt(t)), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, nil
		}
		return fallback, nil
	default:
		return fallback, nil
	}
}

func wantString(filter string, v any, line int) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", typeErr(line, "%s expects a string, got %s", filter, typeName(v))
	}
	return s, nil
}

func titleWords(s string) string {
	var b strings.Builder
	startOfWord := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			startOfWord = true
			b.WriteRune(r)
		case startOfWord:
			b.WriteString(strings.ToUpper(string(r)))
			startOfWord = false
		default:
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}

// callMethod dispatches the allow-listed methods on dicts and
// strings. Anything outside the list is rejected.
func callMethod(obj any, name string, args []any, line int) (any, error) {
	switch t := obj.(type) {
	case map[string]any:
		return callMapMethod(t, name, args, line)
	case string:
		return callStringMethod(t, name, args, line)
	case undefined:
		return nil, undefinedErr(line, "'%s' is undefined, cannot call %q", t.name, name)
	default:
		return nil, typeErr(line, "%s has no method %q", typeName(obj), name)
	}
}

func callMapMethod(m map[string]any, name string, args []any, line int) (any, error) {
	switch name {
	case "keys":
		keys := sortedKeys(m)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, nil
	case "values":
		keys := sortedKeys(m)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = m[k]
		}
		return out, nil
	case "items":
		keys := sortedKeys(m)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = []any{k, m[k]}
		}
		return out, nil
	case "get":
		if len(args) < 1 {
			return nil, typeErr(line, "get expects a key")
		}
		key, ok := args[0].(string)
		if !ok {
			return nil, typeErr(line, "get key must be a string, got %s", typeName(args[0]))
		}
		if strings.HasPrefix(key, "_") {
			return nil, securityErr(line, "access to key %q is not allowed", key)
		}
		if v, ok := m[key]; ok {
			return v, nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return nil, nil
	default:
		return nil, securityErr(line, "method %q is not allowed on dicts", name)
	}
}

func callStringMethod(s, name string, args []any, line int) (any, error) {
	switch name {
	case "startswith":
		prefix, err := wantStringArg(name, args, line)
		if err != nil {
			return nil, err
		}
		return strings.HasPrefix(s, prefix), nil
	case "endswith":
		suffix, err := wantStringArg(name, args, line)
		if err != nil {
			return nil, err
		}
		return strings.HasSuffix(s, suffix), nil
	case "split":
		sep := ""
		if len(args) > 0 {
			v, ok := args[0].(string)
			if !ok {
				return nil, typeErr(line, "split separator must be a string")
			}
			sep = v
		}
		var parts []string
		if sep == "" {
			parts = strings.Fields(s)
		} else {
			parts = strings.Split(s, sep)
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case "strip":
		return strings.TrimSpace(s), nil
	case "upper":
		return strings.ToUpper(s), nil
	case "lower":
		return strings.ToLower(s), nil
	case "replace":
		if len(args) < 2 {
			return nil, typeErr(line, "replace expects old and new strings")
		}
		old, ok1 := args[0].(string)
		repl, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, typeErr(line, "replace arguments must be strings")
		}
		return strings.ReplaceAll(s, old, repl), nil
	default:
		return nil, securityErr(line, "method %q is not allowed on strings", name)
	}
}

func wantStringArg(method string, args []any, line int) (string, error) {
	if len(args) < 1 {
		return "", typeErr(line, "%s expects an argument", method)
	}
	s, ok := args[0].(string)
	if !ok {
		return "", typeErr(line, "%s expects a string, got %s", method, typeName(args[0]))
	}
	return s, nil
}

// callFunction dispatches the allow-listed global functions.
func callFunction(name string, args []any, line int) (any, error) {
	if name != "range" {
		return nil, securityErr(line, "function %q is not allowed", name)
	}

	params := make([]int64, len(args))
	for i, a := range args {
		n, ok := a.(int64)
		if !ok {
			return nil, typeErr(line, "range arguments must be integers, got %s", typeName(a))
		}
		params[i] = n
	}

	var start, stop, step int64
	switch len(params) {
	case 1:
		start, stop, step = 0, params[0], 1
	case 2:
		start, stop, step = params[0], params[1], 1
	case 3:
		start, stop, step = params[0], params[1], params[2]
	default:
		return nil, typeErr(line, "range expects one to three arguments, got %d", len(params))
	}
	if step == 0 {
		return nil, typeErr(line, "range step cannot be zero")
	}

	var size int64
	if step > 0 && stop > start {
		size = (stop - start + step - 1) / step
	} else if step < 0 && stop < start {
		size = (start - stop - step - 1) / -step
	}
	if size > maxRangeLen {
		return nil, securityErr(line, "range of %d elements exceeds the limit of %d", size, maxRangeLen)
	}

	out := make([]any, 0, size)
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}
	return out, nil
}

func sortSlice(items []any, less func(a, b any) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

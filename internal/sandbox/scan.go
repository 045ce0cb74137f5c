package sandbox

import "strings"

// segment is one raw piece of a template: literal text, an output
// expression, or a block tag.
type segment struct {
	kind segKind
	text string // expression or tag body, delimiters stripped
	line int    // 1-based line of the opening delimiter
}

type segKind int

const (
	segText segKind = iota
	segOutput
	segTag
)

// scanTemplate splits the source on {{ }}, {% %} and {# #} delimiters.
// Block and comment tags get lstrip/trim treatment: whitespace from
// the start of the tag's line is removed, as is the newline directly
// after the closing delimiter. An explicit "-" inside a delimiter
// trims all adjacent whitespace instead.
func scanTemplate(src string) ([]segment, error) {
	var segs []segment
	line := 1

	for len(src) > 0 {
		open := findDelim(src)
		if open < 0 {
			segs = appendText(segs, src, line)
			break
		}

		kind := src[open+1]
		text := src[:open]
		isBlock := kind == '%' || kind == '#'

		if open+2 < len(src) && src[open+2] == '-' {
			text = strings.TrimRight(text, " \t\r\n")
		} else if isBlock {
			text = lstripBlock(text, len(segs) == 0)
		}
		segs = appendText(segs, text, line)
		line += strings.Count(src[:open], "\n")
		tagLine := line

		closeDelim := map[byte]string{'{': "}}", '%': "%}", '#': "#}"}[kind]
		rest := src[open+2:]
		if len(rest) > 0 && rest[0] == '-' {
			rest = rest[1:]
		}

		end := strings.Index(rest, closeDelim)
		trimmedClose := false
		if alt := strings.Index(rest, "-"+closeDelim); alt >= 0 && (end < 0 || alt+1 == end) {
			end = alt
			trimmedClose = true
		}
		if end < 0 {
			return nil, syntaxErr(tagLine, "unclosed %q tag", string([]byte{'{', kind}))
		}

		body := rest[:end]
		line += strings.Count(body, "\n")
		consumed := end + len(closeDelim)
		if trimmedClose {
			consumed++
		}
		src = rest[consumed:]

		switch kind {
		case '{':
			segs = append(segs, segment{kind: segOutput, text: strings.TrimSpace(body), line: tagLine})
		case '%':
			segs = append(segs, segment{kind: segTag, text: strings.TrimSpace(body), line: tagLine})
		}

		if trimmedClose {
			trimmed := strings.TrimLeft(src, " \t\r\n")
			line += strings.Count(src[:len(src)-len(trimmed)], "\n")
			src = trimmed
		} else if isBlock {
			// trim_blocks removes the single newline after %} or #}.
			if strings.HasPrefix(src, "\r\n") {
				src = src[2:]
				line++
			} else if strings.HasPrefix(src, "\n") {
				src = src[1:]
				line++
			}
		}
	}
	return segs, nil
}

// findDelim locates the next {{, {% or {# opener, or -1.
func findDelim(src string) int {
	for i := 0; i+1 < len(src); i++ {
		if src[i] != '{' {
			continue
		}
		switch src[i+1] {
		case '{', '%', '#':
			return i
		}
	}
	return -1
}

// lstripBlock removes horizontal whitespace between the last newline
// and a block tag, matching lstrip_blocks. Text with no newline is
// stripped only at the very start of the template.
func lstripBlock(text string, atTemplateStart bool) string {
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		if atTemplateStart && strings.TrimLeft(text, " \t") == "" {
			return ""
		}
		return text
	}
	if strings.TrimLeft(text[idx+1:], " \t") == "" {
		return text[:idx+1]
	}
	return text
}

func appendText(segs []segment, text string, line int) []segment {
	if text == "" {
		return segs
	}
	return append(segs, segment{kind: segText, text: text, line: line})
}

package sandbox

import "fmt"

// ErrorKind classifies a render failure for the recovery reporter.
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrUndefined
	ErrType
	ErrSecurity
)

// RenderError is any failure raised while parsing or rendering a
// template. Line is 1-based; 0 means unknown.
type RenderError struct {
	Kind    ErrorKind
	Line    int
	Message string
}

func (e *RenderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func syntaxErr(line int, format string, args ...any) *RenderError {
	return &RenderError{Kind: ErrSyntax, Line: line, Message: fmt.Sprintf(format, args...)}
}

func undefinedErr(line int, format string, args ...any) *RenderError {
	return &RenderError{Kind: ErrUndefined, Line: line, Message: fmt.Sprintf(format, args...)}
}

func typeErr(line int, format string, args ...any) *RenderError {
	return &RenderError{Kind: ErrType, Line: line, Message: fmt.Sprintf(format, args...)}
}

func securityErr(line int, format string, args ...any) *RenderError {
	return &RenderError{Kind: ErrSecurity, Line: line, Message: fmt.Sprintf(format, args...)}
}

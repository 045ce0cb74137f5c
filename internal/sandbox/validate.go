// Package sandbox renders report templates inside a closed
// interpreter. The grammar is a fixed allow-list: output expressions,
// conditionals, loops, comments, and a set of display filters. Values
// never leave the restricted domain of nil, bool, int64, float64,
// string, []any and map[string]any, so a template has no path to the
// runtime, the filesystem, or the process. A static pattern scan runs
// as an independent first layer before any parsing.
package sandbox

import (
	"fmt"
	"regexp"
)

// MaxTemplateSize is the largest template the validator accepts.
const MaxTemplateSize = 500 * 1024

// Validation is the outcome of static template validation.
type Validation struct {
	Valid    bool
	Reason   string
	Warnings []string
}

var dangerousPatterns = []*regexp.Regexp{
	// Object introspection
	regexp.MustCompile(`(?i)__class__`),
	regexp.MustCompile(`(?i)__mro__`),
	regexp.MustCompile(`(?i)__subclasses__`),
	regexp.MustCompile(`(?i)__globals__`),
	regexp.MustCompile(`(?i)__init__`),
	regexp.MustCompile(`(?i)__builtins__`),
	regexp.MustCompile(`(?i)__import__`),
	regexp.MustCompile(`(?i)__dict__`),
	regexp.MustCompile(`(?i)__bases__`),
	regexp.MustCompile(`(?i)__getattribute__`),
	regexp.MustCompile(`(?i)__getitem__`),

	// Code execution
	regexp.MustCompile(`(?i)\bexec\s*\(`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bcompile\s*\(`),

	// File system access
	regexp.MustCompile(`(?i)\bopen\s*\(`),
	regexp.MustCompile(`(?i)\bfile\s*\(`),

	// Process access
	regexp.MustCompile(`(?i)\.system\s*\(`),
	regexp.MustCompile(`(?i)\.popen\s*\(`),
	regexp.MustCompile(`(?i)\.spawn\s*\(`),

	// Import statements
	regexp.MustCompile(`(?i)import\s+\w+`),
	regexp.MustCompile(`(?i)from\s+\w+\s+import`),
}

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.attr\s*\(`),
	regexp.MustCompile(`(?i)\[\s*["']__`),
}

// Validate runs the static checks: size cap, the dangerous-pattern
// deny list, the suspicious-pattern warning list, and a syntax parse.
// The matched pattern text is included in the rejection reason so the
// template author can find it.
func Validate(template string) Validation {
	v := Validation{Warnings: []string{}}

	if len(template) > MaxTemplateSize {
		v.Reason = fmt.Sprintf("Template too large (%d bytes). Maximum size is %d bytes.",
			len(template), MaxTemplateSize)
		return v
	}

	for _, pattern := range dangerousPatterns {
		if m := pattern.FindString(template); m != "" {
			v.Reason = fmt.Sprintf("Dangerous pattern detected: %q. This pattern is blocked for security reasons.", m)
			return v
		}
	}

	for _, pattern := range suspiciousPatterns {
		if m := pattern.FindString(template); m != "" {
			v.Warnings = append(v.Warnings,
				fmt.Sprintf("Suspicious pattern detected: %q. This may indicate a security risk.", m))
		}
	}

	if _, err := Parse(template); err != nil {
		v.Reason = fmt.Sprintf("Invalid template syntax: %s", err)
		return v
	}

	v.Valid = true
	return v
}

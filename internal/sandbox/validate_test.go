package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var injectionPayloads = []string{
	// Object introspection
	"{{ ''.__class__.__mro__[1].__subclasses__() }}",
	"{{ [].__class__.__base__.__subclasses__() }}",
	"{{ {}.__class__.__bases__[0].__subclasses__() }}",
	"{{ request.__class__.__mro__[1].__subclasses__() }}",

	// Code execution
	"{{ __import__('os').system('whoami') }}",
	"{{ __import__('subprocess').check_output('ls') }}",
	"{{ __builtins__.__import__('os').system('id') }}",
	"{{ exec('import os; os.system(\"whoami\")') }}",
	"{{ eval('__import__(\"os\").system(\"ls\")') }}",

	// File system access
	"{{ open('/etc/passwd').read() }}",

	// Attribute access tricks
	"{{ request['__class__'] }}",
	"{{ self.__dict__ }}",
	"{{ lipsum.__globals__ }}",
	"{{ x.__class__.__mro__ }}",
	"{{ x['__class__']['__mro__'] }}",
	"{{ x|attr('__class__')|attr('__mro__') }}",

	// Import statements
	"{% import os %}",
	"{% from os import system %}",

	// Process access through globals
	"{{ config.__class__.__init__.__globals__['os'].popen('ls').read() }}",
	"{{ url_for.__globals__['__builtins__']['__import__']('os').system('ls') }}",
}

var safeTemplates = []string{
	"{{ logo_url }}",
	"{{ report_title or 'Default Title' }}",
	"{% if total_backups > 0 %}{{ total_backups }}{% endif %}",
	"{% for device in devices %}{{ device.name }}{% endfor %}",
	"{{ (storage_used_bytes / 1024**3)|round(1) }} GB",
	"{{ devices|length }}",
	"<h1>{{ report_title }}</h1><p>{{ date_range }}</p>",
}

func TestValidateBlocksInjectionPayloads(t *testing.T) {
	for _, payload := range injectionPayloads {
		v := Validate(payload)
		assert.False(t, v.Valid, "should have blocked: %s", payload)
		assert.NotEmpty(t, v.Reason, "should carry a reason for: %s", payload)
	}
}

func TestValidateAllowsSafeTemplates(t *testing.T) {
	for _, template := range safeTemplates {
		v := Validate(template)
		assert.True(t, v.Valid, "should have allowed: %s, reason: %s", template, v.Reason)
	}
}

func TestValidateSizeLimit(t *testing.T) {
	large := strings.Repeat("{{ test }}", 100000)
	require.Greater(t, len(large), MaxTemplateSize)

	v := Validate(large)
	assert.False(t, v.Valid)
	assert.Contains(t, strings.ToLower(v.Reason), "too large")
}

func TestValidateReasonNamesThePattern(t *testing.T) {
	v := Validate("{{ open('/etc/passwd').read() }}")
	require.False(t, v.Valid)
	assert.Contains(t, v.Reason, "open")
}

func TestValidateSyntaxErrors(t *testing.T) {
	v := Validate("{% if x %}unclosed")
	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, "Invalid template syntax")
}

func TestValidateSuspiciousWarnings(t *testing.T) {
	// attr access without dunders passes static validation with a
	// warning and is stopped at render time instead.
	v := Validate("{{ x.attr('name') }}")
	assert.True(t, v.Valid)
	require.NotEmpty(t, v.Warnings)
	assert.Contains(t, v.Warnings[0], "attr")
}

func TestValidateEmptyTemplate(t *testing.T) {
	v := Validate("")
	assert.True(t, v.Valid)
	assert.Empty(t, v.Warnings)
}

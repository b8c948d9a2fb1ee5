// Package security keeps Telegram credentials out of log output and out of
// configuration served over HTTP.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches configuration keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|pass|key|api_hash)`)

// sensitiveFields are TDLib request and object fields whose string values
// are credentials or personal data.
const sensitiveFields = `api_hash|database_encryption_key|password|old_password|new_password|code|phone_number|email_address|token`

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Redactor replaces secret values in strings and maps with RedactPlaceholder.
// It knows the sensitive fields of TDLib messages in both their JSON and
// plist encodings, common token formats, and literal values registered at
// runtime. All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	rules    []rule
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{rules: defaultRules()}
}

// AddPattern adds a pattern whose every match is replaced.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{re: pattern, repl: RedactPlaceholder})
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact returns s with every known secret replaced.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	rules := r.rules
	literals := r.literals
	r.mu.RUnlock()

	for _, rl := range rules {
		s = rl.re.ReplaceAllString(s, rl.repl)
	}
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	return s
}

// RedactMap walks a decoded configuration and replaces non-empty string
// values whose keys look like secrets. Other strings go through Redact.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		case string:
			if redacted := r.Redact(val); redacted != val {
				m[k] = redacted
			}
		}
	}
}

func defaultRules() []rule {
	rules := []rule{
		// "phone_number":"+15551234567"
		{
			re:   regexp.MustCompile(`"(` + sensitiveFields + `)"(\s*):(\s*)"(?:[^"\\]|\\.)*"`),
			repl: `"${1}"${2}:${3}"` + RedactPlaceholder + `"`,
		},
		// :phone_number "+15551234567"
		{
			re:   regexp.MustCompile(`:(` + sensitiveFields + `)(\s+)"(?:[^"\\]|\\.)*"`),
			repl: `:${1}${2}"` + RedactPlaceholder + `"`,
		},
	}
	for _, p := range DefaultPatterns() {
		rules = append(rules, rule{re: p, repl: RedactPlaceholder})
	}
	return rules
}

// DefaultPatterns returns compiled patterns for token formats that may show
// up in payloads or configuration.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Telegram bot token: <bot id>:<35 chars>
		regexp.MustCompile(`\b[0-9]{6,12}:[A-Za-z0-9_-]{35}\b`),
		// HTTP bearer credentials
		regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{8,}`),
		// Telegram login links carrying a one-time token
		regexp.MustCompile(`tg://login\?token=[A-Za-z0-9_-]+`),
	}
}

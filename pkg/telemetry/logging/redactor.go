package logging

import (
	"regexp"
	"strings"
)

// Pattern is a named redaction rule.
type Pattern struct {
	Name        string
	Regex       string
	Replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
	PatternEmail       = "email"
	PatternSSN         = "ssn"
	PatternCreditCard  = "credit_card"
	PatternPhone       = "phone"
	PatternIPv4        = "ipv4"
	PatternIPv6        = "ipv6"
	PatternPassword    = "password"
)

// DefaultPatterns are applied in order; earlier rules win on overlapping text.
var DefaultPatterns = []Pattern{
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternAPIKey, `(sk-[a-zA-Z0-9_-]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9]+)`, "sk-***"},
	{PatternPassword, `(password|passwd|pwd)[:=]\s*[^\s]+`, "$1: ***"},
	{PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "***@***"},
	{PatternSSN, `\b\d{3}[-\s]\d{2}[-\s]\d{4}\b`, "***-**-****"},
	{PatternCreditCard, `\b(?:\d[ -]?){12,15}\d\b`, "****-****-****-****"},
	{PatternPhone, `(?:\+?1[-.\s]?)?\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`, "***-***-****"},
	{PatternIPv4, `\b(?:\d{1,3}\.){3}\d{1,3}\b`, "*.*.*.*"},
	{PatternIPv6, `\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`, "****:****:****:****:****:****:****:****"},
}

// sensitiveKeys mark attribute keys whose values are always replaced.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "access_token", "auth_token", "refresh_token", "api_key", "apikey",
	"authorization", "cookie",
	"ssn", "social_security",
	"credit_card", "creditcard",
	"private_key", "privatekey",
	"prompt", "completion", "original",
}

// Redactor scrubs PII patterns from log values and hides values stored
// under sensitive keys. Placeholders such as [US_SSN_1a2b3c4d] are left
// intact; they carry no original text.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with DefaultPatterns followed by extra.
// Extra patterns that fail to compile are skipped.
func NewRedactor(extra ...Pattern) *Redactor {
	r := &Redactor{}
	for _, p := range DefaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{p.Name, regexp.MustCompile(p.Regex), p.Replacement})
	}
	for _, p := range extra {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{p.Name, re, p.Replacement})
	}
	return r
}

// RedactString replaces every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// IsSensitiveKey reports whether text logged under key is hidden outright.
// Numeric values under such keys, like prompt_tokens, are kept.
func (r *Redactor) IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// RedactAPIKey keeps the first four characters of an API key.
func RedactAPIKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}

package meta

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "${env."

// expandEnv replaces ${env.KEY} expressions with lookup(KEY); unknown keys
// expand to an empty string.  Expressions with an invalid key are kept
// literally and an unterminated expression ends expansion.
func expandEnv(text string, lookup func(string) (string, bool)) string {
	if !strings.Contains(text, envPrefix) {
		return text
	}
	var out strings.Builder
	out.Grow(len(text))
	rest := text
	for {
		start := strings.Index(rest, envPrefix)
		if start < 0 {
			out.WriteString(rest)
			return out.String()
		}
		out.WriteString(rest[:start])
		body := rest[start+len(envPrefix):]
		end := strings.IndexByte(body, '}')
		if end < 0 {
			out.WriteString(rest[start:])
			return out.String()
		}
		key := body[:end]
		if !isEnvKey(key) {
			out.WriteString(envPrefix)
			rest = body
			continue
		}
		if value, ok := lookup(key); ok {
			out.WriteString(value)
		}
		rest = body[end+1:]
	}
}

func isEnvKey(key string) bool {
	for _, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

func osLookup(key string) (string, bool) { return os.LookupEnv(key) }

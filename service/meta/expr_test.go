package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	env := map[string]string{"FOO": "bar", "A": "1", "B": "2", "X": "x"}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "no expressions", input: "just a plain string", expected: "just a plain string"},
		{name: "single expression", input: "value is ${env.FOO}", expected: "value is bar"},
		{name: "multiple expressions", input: "${env.A}-${env.B}-${env.A}", expected: "1-2-1"},
		{name: "unset variable becomes empty", input: "unset=${env.NOTSET}-end", expected: "unset=-end"},
		{name: "invalid key kept literally", input: "start ${env.X and ${env.FOO} end", expected: "start ${env.X and bar end"},
		{name: "unterminated", input: "tail ${env.FOO", expected: "tail ${env.FOO"},
		{name: "prefix only no key", input: "oops ${env.} done", expected: "oops  done"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, expandEnv(tc.input, lookup))
		})
	}
}

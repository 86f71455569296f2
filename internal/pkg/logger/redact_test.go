package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jane.doe@acme.com", "ja***@acme.com"},
		{"jd@acme.com", "***@acme.com"},
		{"not-an-email", "***@***"},
		{"", "***@***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactEmail(tt.in))
	}
}

func TestRedactValueGenericField(t *testing.T) {
	got := redactValue("note", "contact jane.doe@acme.com soon")
	assert.Equal(t, "contact ja***@acme.com soon", got)
}

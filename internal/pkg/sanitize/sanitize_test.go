package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text unchanged", in: "How was your day?", want: "How was your day?"},
		{name: "tags stripped", in: "<b>hello</b> <i>there</i>", want: "hello there"},
		{name: "script removed with content", in: "<script>alert(1)</script>hi", want: "hi"},
		{name: "ampersand escaped", in: "Tom & Jerry", want: "Tom &amp; Jerry"},
		{name: "apostrophe kept", in: "I can't go on", want: "I can't go on"},
		{name: "double quote kept", in: `she said "no"`, want: `she said "no"`},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestTrimmed(t *testing.T) {
	assert.Equal(t, "name", Trimmed("  <em>name</em>  "))
	assert.Equal(t, "", Trimmed("   "))
}

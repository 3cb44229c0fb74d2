package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSSML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single sentence",
			in:   "Hello there.",
			want: `<speak>Hello there.<break time="500ms"/></speak>`,
		},
		{
			name: "mixed terminals",
			in:   "Really? Yes! Good.",
			want: `<speak>Really?<break time="500ms"/> Yes!<break time="500ms"/> Good.<break time="500ms"/></speak>`,
		},
		{
			name: "no punctuation",
			in:   "breathe in",
			want: "<speak>breathe in</speak>",
		},
		{
			name: "ellipsis gets a break per dot",
			in:   "..",
			want: `<speak>.<break time="500ms"/>.<break time="500ms"/></speak>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SSML(tt.in))
		})
	}
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two.", "Three."}, Paragraphs("One.\n\n  Two.  \n\n\n\nThree."))
	assert.Equal(t, []string{"a\nb"}, Paragraphs("a\nb"))
	assert.Empty(t, Paragraphs(" \n\n \n\n"))
	assert.Empty(t, Paragraphs(""))
}

// Package speech turns assistant replies into audio clips.
package speech

import "strings"

// PauseTime is the break inserted after each sentence-terminal mark.
const PauseTime = "500ms"

var pauses = strings.NewReplacer(
	".", `.<break time="`+PauseTime+`"/>`,
	"?", `?<break time="`+PauseTime+`"/>`,
	"!", `!<break time="`+PauseTime+`"/>`,
)

// SSML wraps text in a speak element with a pause after every '.', '?' and '!'.
func SSML(text string) string {
	return "<speak>" + pauses.Replace(text) + "</speak>"
}

// Paragraphs splits text on blank-line boundaries and drops empty paragraphs.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

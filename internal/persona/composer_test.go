package persona

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

const goldenClara = "--- User's Background Information ---\n" +
	"The user has completed their foundation assessment...\n" +
	"- Main difficulties: sleep\n" +
	"- Impact on daily life: N/A\n" +
	"- Goals for therapy: rest more\n" +
	"\n\n" +
	"Here is some background context from the user's recent diary entries:\n" +
	"On 2024-01-01, they wrote: 'tired'\n" +
	"On 2024-01-02, they wrote: 'better'" +
	"\n\n" +
	"--- Your Instructions ---\n" +
	"You are Clara, a compassionate CBT companion for Sam. " +
	"Your tone is warm. Refer to their goals/difficulties when relevant. " +
	`IMPORTANT: Use short paragraphs separated by double newlines (\n\n). No markdown.`

func TestCompose_Golden(t *testing.T) {
	in := Input{
		Persona:     models.PersonaClara,
		DisplayName: "Sam",
		Assessment:  &models.Assessment{PrimaryIssues: "sleep", TherapyGoals: "rest more"},
		Diary: []models.DiaryEntry{
			{Date: "2024-01-02", Text: "better"},
			{Date: "2024-01-01", Text: "tired"},
		},
	}

	got := Compose(in)
	assert.Equal(t, goldenClara, got)
	assert.Equal(t, got, Compose(in), "same input must render identically")
}

func TestCompose_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		contains []string
	}{
		{
			name: "no assessment and no diary",
			in:   Input{Persona: models.PersonaAlex, DisplayName: "Jo"},
			contains: []string{
				"The user has not yet completed their foundation assessment.\n\n",
				"diary entries:\nThe user has no recent diary entries.\n\n",
				"You are Alex, a action-oriented CBT companion for Jo. Your tone is practical.",
			},
		},
		{
			name: "diary read failed",
			in: Input{
				Persona:     models.PersonaClara,
				DisplayName: "Jo",
				Diary:       []models.DiaryEntry{{Date: "2024-01-01", Text: "ignored"}},
				DiaryFailed: true,
			},
			contains: []string{"\n\nCould not retrieve diary entries.\n\n"},
		},
		{
			name:     "unknown persona uses Alex",
			in:       Input{Persona: models.Persona("Bob"), DisplayName: "Jo"},
			contains: []string{"You are Alex, a action-oriented"},
		},
		{
			name:     "placeholders in user text are not expanded",
			in:       Input{Persona: models.PersonaClara, DisplayName: "{tone}"},
			contains: []string{"CBT companion for {tone}. Your tone is warm."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(tt.in)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			assert.NotContains(t, got, "ignored")
		})
	}
}

func TestLookup(t *testing.T) {
	assert.Equal(t, VoiceFemale, Lookup(models.PersonaClara).Voice)
	assert.Equal(t, VoiceMale, Lookup(models.PersonaAlex).Voice)
	assert.Equal(t, models.PersonaAlex, Lookup("").Name)
}

func TestDiarySince(t *testing.T) {
	now := time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01", DiarySince(now))
}

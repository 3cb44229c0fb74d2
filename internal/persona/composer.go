// Package persona builds the system instruction that sets the assistant's voice.
package persona

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HeadupandFace/cbt-companion-app/internal/models"
)

// DiaryWindow is how far back diary entries feed the instruction.
const DiaryWindow = 7 * 24 * time.Hour

// Profile describes how a persona presents itself.
type Profile struct {
	Name  models.Persona
	Type  string
	Tone  string
	Voice VoiceGender
}

// VoiceGender selects the synthesized voice for a persona.
type VoiceGender string

const (
	VoiceFemale VoiceGender = "FEMALE"
	VoiceMale   VoiceGender = "MALE"
)

var (
	clara = Profile{Name: models.PersonaClara, Type: "compassionate", Tone: "warm", Voice: VoiceFemale}
	alex  = Profile{Name: models.PersonaAlex, Type: "action-oriented", Tone: "practical", Voice: VoiceMale}
)

// Lookup returns the profile for p. Anything other than Clara gets Alex.
func Lookup(p models.Persona) Profile {
	if p == models.PersonaClara {
		return clara
	}
	return alex
}

const (
	assessmentHeader  = "The user has completed their foundation assessment...\n"
	noAssessment      = "The user has not yet completed their foundation assessment."
	diaryHeader       = "Here is some background context from the user's recent diary entries:\n"
	noDiary           = "The user has no recent diary entries."
	diaryUnavailable  = "Could not retrieve diary entries."
	notAnswered       = "N/A"
	instructionLayout = "--- User's Background Information ---\n" +
		"{assessment_context}\n\n{diary_context}\n\n" +
		"--- Your Instructions ---\n" +
		"You are {assistant_name}, a {assistant_type} CBT companion for {display_name}. " +
		"Your tone is {tone}. Refer to their goals/difficulties when relevant. " +
		`IMPORTANT: Use short paragraphs separated by double newlines (\n\n). No markdown.`
)

// Input is everything the instruction depends on.
type Input struct {
	Persona     models.Persona
	DisplayName string
	Assessment  *models.Assessment
	Diary       []models.DiaryEntry
	// DiaryFailed marks that the diary could not be read; Diary is ignored.
	DiaryFailed bool
}

// Compose renders the system instruction. It performs no I/O and is deterministic:
// diary entries are ordered by date before rendering.
func Compose(in Input) string {
	p := Lookup(in.Persona)

	r := strings.NewReplacer(
		"{assessment_context}", assessmentContext(in.Assessment),
		"{diary_context}", diaryContext(in.Diary, in.DiaryFailed),
		"{assistant_name}", string(p.Name),
		"{assistant_type}", p.Type,
		"{display_name}", in.DisplayName,
		"{tone}", p.Tone,
	)
	return r.Replace(instructionLayout)
}

func assessmentContext(a *models.Assessment) string {
	if a == nil {
		return noAssessment
	}
	var b strings.Builder
	b.WriteString(assessmentHeader)
	fmt.Fprintf(&b, "- Main difficulties: %s\n", orNA(a.PrimaryIssues))
	fmt.Fprintf(&b, "- Impact on daily life: %s\n", orNA(a.DailyImpact))
	fmt.Fprintf(&b, "- Goals for therapy: %s\n", orNA(a.TherapyGoals))
	return b.String()
}

func diaryContext(entries []models.DiaryEntry, failed bool) string {
	if failed {
		return diaryUnavailable
	}
	if len(entries) == 0 {
		return diaryHeader + noDiary
	}

	sorted := make([]models.DiaryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	lines := make([]string, len(sorted))
	for i, e := range sorted {
		lines[i] = fmt.Sprintf("On %s, they wrote: '%s'", e.Date, e.Text)
	}
	return diaryHeader + strings.Join(lines, "\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAnswered
	}
	return s
}

// DiarySince returns the earliest diary date included for a request made at now.
func DiarySince(now time.Time) string {
	return now.Add(-DiaryWindow).Format(models.DiaryDateLayout)
}

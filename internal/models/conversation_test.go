package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTurns(n int) []Turn {
	turns := make([]Turn, n)
	for i := range turns {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		turns[i] = Turn{Role: role, Text: fmt.Sprintf("turn %d", i)}
	}
	return turns
}

func TestTruncateHistory(t *testing.T) {
	tests := []struct {
		name      string
		in        int
		window    int
		wantLen   int
		wantFirst string
	}{
		{name: "empty", in: 0, window: HistoryWindow, wantLen: 0},
		{name: "under window", in: 5, window: HistoryWindow, wantLen: 5, wantFirst: "turn 0"},
		{name: "exactly window", in: 20, window: HistoryWindow, wantLen: 20, wantFirst: "turn 0"},
		{name: "over window keeps newest", in: 23, window: HistoryWindow, wantLen: 20, wantFirst: "turn 3"},
		{name: "negative window", in: 3, window: -1, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateHistory(makeTurns(tt.in), tt.window)
			require.Len(t, got, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, got[0].Text)
				assert.Equal(t, fmt.Sprintf("turn %d", tt.in-1), got[len(got)-1].Text)
			}
		})
	}
}

func TestTruncateHistory_DoesNotAlias(t *testing.T) {
	in := makeTurns(3)
	out := TruncateHistory(in, HistoryWindow)
	out[0].Text = "changed"
	assert.Equal(t, "turn 0", in[0].Text)
}

func TestFallbackUser(t *testing.T) {
	u := FallbackUser("uid-1", "sam@example.com")
	assert.Equal(t, "sam", u.Username)
	assert.Equal(t, "sam", u.Name())
	assert.Equal(t, PersonaClara, u.PreferredAssistant)
	assert.False(t, u.OnboardingComplete)
}

func TestPersonaValid(t *testing.T) {
	assert.True(t, PersonaClara.Valid())
	assert.True(t, PersonaAlex.Valid())
	assert.False(t, Persona("Bob").Valid())
}

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyCombo(t *testing.T) {
	tests := []struct {
		combo string
		want  []string
	}{
		{"ctrl+shift+t", []string{"Control_L", "Shift_L", "t"}},
		{"Enter", []string{"Return"}},
		{"cmd+F5", []string{"Super_L", "F5"}},
		{"alt+Tab", []string{"Alt_L", "Tab"}},
		{"ctrl+?", []string{"Control_L", "Shift_L", "slash"}},
		{"shift", []string{"Shift_L"}},
		{"A", []string{"Shift_L", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.combo, func(t *testing.T) {
			got, err := ParseKeyCombo(tt.combo)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeyCombo_Errors(t *testing.T) {
	for _, combo := range []string{"ctrl+", "ctrl+nope", "é"} {
		_, err := ParseKeyCombo(combo)
		assert.Error(t, err, combo)
	}
}

func TestKeysymForRune(t *testing.T) {
	name, shift, ok := keysymForRune('Q')
	require.True(t, ok)
	assert.Equal(t, "q", name)
	assert.True(t, shift)

	name, shift, ok = keysymForRune(' ')
	require.True(t, ok)
	assert.Equal(t, "space", name)
	assert.False(t, shift)

	_, _, ok = keysymForRune('€')
	assert.False(t, ok)
}

func TestActionValidate(t *testing.T) {
	valid := []Action{
		{Kind: ActionClick, X: 5, Y: 5},
		{Kind: ActionMove},
		{Kind: ActionType, Text: "hi"},
		{Kind: ActionKey, Keys: "ctrl+l"},
		{Kind: ActionScroll, DY: -3},
	}
	for _, a := range valid {
		assert.NoError(t, a.Validate(), a.String())
	}

	invalid := []Action{
		{},
		{Kind: "drag"},
		{Kind: ActionClick, X: -1},
		{Kind: ActionClick, Button: 9},
		{Kind: ActionType},
		{Kind: ActionKey, Keys: "  "},
		{Kind: ActionScroll},
	}
	for _, a := range invalid {
		assert.Error(t, a.Validate(), a.String())
	}
}

func TestActionNormalized(t *testing.T) {
	a := Action{Kind: ActionClick, X: 1, Y: 2}.Normalized()
	assert.Equal(t, 1, a.Button)
	assert.Equal(t, 1, a.Count)

	typed := Action{Kind: ActionType, Text: "x"}.Normalized()
	assert.Zero(t, typed.Button)
}

func TestWindowRenderableWithoutActivation(t *testing.T) {
	w := Window{OnScreen: true, Alpha: 1, Bounds: Rect{Width: 10, Height: 10}}
	assert.True(t, w.RenderableWithoutActivation())

	w.Alpha = 0
	assert.False(t, w.RenderableWithoutActivation())

	w.Alpha, w.Bounds.Height = 1, 0
	assert.False(t, w.RenderableWithoutActivation())

	w.Bounds.Height, w.OnScreen = 10, false
	assert.False(t, w.RenderableWithoutActivation())
}

package platform

import (
	"fmt"
	"strings"
	"unicode"
)

var modifierKeys = map[string]string{
	"ctrl":    "Control_L",
	"control": "Control_L",
	"shift":   "Shift_L",
	"alt":     "Alt_L",
	"option":  "Alt_L",
	"super":   "Super_L",
	"cmd":     "Super_L",
	"meta":    "Super_L",
	"win":     "Super_L",
}

var namedKeys = map[string]string{
	"enter":     "Return",
	"return":    "Return",
	"esc":       "Escape",
	"escape":    "Escape",
	"tab":       "Tab",
	"space":     "space",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"del":       "Delete",
	"insert":    "Insert",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
}

// ParseKeyCombo turns "ctrl+shift+t" into keysym names in press order.
func ParseKeyCombo(combo string) ([]string, error) {
	parts := strings.Split(strings.TrimSpace(combo), "+")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		if part == "" {
			return nil, fmt.Errorf("empty key in combo %q", combo)
		}
		if mod, ok := modifierKeys[lower]; ok {
			keys = append(keys, mod)
			continue
		}
		if named, ok := namedKeys[lower]; ok {
			keys = append(keys, named)
			continue
		}
		if len(lower) >= 2 && lower[0] == 'f' && isDigits(lower[1:]) {
			keys = append(keys, "F"+lower[1:])
			continue
		}
		runes := []rune(part)
		if len(runes) == 1 {
			name, shift, ok := keysymForRune(runes[0])
			if !ok {
				return nil, fmt.Errorf("unknown key %q", part)
			}
			if shift {
				keys = append(keys, "Shift_L")
			}
			keys = append(keys, name)
			continue
		}
		return nil, fmt.Errorf("unknown key %q", part)
	}
	return keys, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

var unshiftedSymbols = map[rune]string{
	' ':  "space",
	'\n': "Return",
	'\t': "Tab",
	'`':  "grave",
	'-':  "minus",
	'=':  "equal",
	'[':  "bracketleft",
	']':  "bracketright",
	'\\': "backslash",
	';':  "semicolon",
	'\'': "apostrophe",
	',':  "comma",
	'.':  "period",
	'/':  "slash",
}

// shiftedSymbols map to the keysym of the unshifted key on a US layout.
var shiftedSymbols = map[rune]string{
	'~': "grave",
	'!': "1",
	'@': "2",
	'#': "3",
	'$': "4",
	'%': "5",
	'^': "6",
	'&': "7",
	'*': "8",
	'(': "9",
	')': "0",
	'_': "minus",
	'+': "equal",
	'{': "bracketleft",
	'}': "bracketright",
	'|': "backslash",
	':': "semicolon",
	'"': "apostrophe",
	'<': "comma",
	'>': "period",
	'?': "slash",
}

func keysymForRune(r rune) (name string, shift bool, ok bool) {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return string(r), false, true
	case r >= 'A' && r <= 'Z':
		return string(unicode.ToLower(r)), true, true
	}
	if name, ok := unshiftedSymbols[r]; ok {
		return name, false, true
	}
	if name, ok := shiftedSymbols[r]; ok {
		return name, true, true
	}
	return "", false, false
}

package colors

// Color describes an ANSI SGR code.
type Color int

// ANSI codes taken from zerolog's console writer.
// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
const (
	RED    Color = 31
	GREEN  Color = 32
	YELLOW Color = 33
	BLUE   Color = 34
	CYAN   Color = 36
	// BOLD is the ANSI code for bold text
	BOLD Color = 1
)

// Glyphs used for pretty console output
const (
	// LEFT_ARROW is the unicode string for a left arrow glyph
	LEFT_ARROW = "\u21fe"
)

package colors

// init enables ANSI coloring where the terminal supports it. Unix terminals support it by default, Windows consoles
// need virtual terminal processing switched on.
func init() {
	EnableColor()
}

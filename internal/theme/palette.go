package theme

// Palette contains resolved styling primitives for the application shell.
type Palette struct {
	Key               string
	HTMLClass         string
	BodyClass         string
	ShellClass        string
	PanelSurfaceClass string
	BorderClass       string
	AccentTextClass   string
	MutedTextClass    string
	ToggleLabel       string
}

var (
	dark = Palette{
		Key:               "dark",
		HTMLClass:         "dark",
		BodyClass:         "min-h-screen bg-slate-950 text-slate-100",
		ShellClass:        "dashboard-shell dark",
		PanelSurfaceClass: "rounded-xl bg-slate-900 shadow",
		BorderClass:       "border-slate-800",
		AccentTextClass:   "text-cyan-300",
		MutedTextClass:    "text-slate-400",
		ToggleLabel:       "Switch to light mode",
	}
	light = Palette{
		Key:               "light",
		HTMLClass:         "",
		BodyClass:         "min-h-screen bg-stone-50 text-stone-900",
		ShellClass:        "dashboard-shell light",
		PanelSurfaceClass: "rounded-xl bg-white shadow",
		BorderClass:       "border-stone-200",
		AccentTextClass:   "text-indigo-600",
		MutedTextClass:    "text-stone-500",
		ToggleLabel:       "Switch to dark mode",
	}
)

// Resolve returns the palette for the provided preference.
func Resolve(isDark bool) Palette {
	if isDark {
		return dark
	}
	return light
}

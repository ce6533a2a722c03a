package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text, color string
}{
	{"      _                  __ _               ", "#818cf8"},
	{"  ___| |_ ___  _ __ ___ / _| | _____      __", "#a78bfa"},
	{" / __| __/ _ \\| '__/ _ \\ |_| |/ _ \\ \\ /\\ / /", "#c084fc"},
	{" \\__ \\ || (_) | | |  __/  _| | (_) \\ V  V / ", "#e879f9"},
	{" |___/\\__\\___/|_|  \\___|_| |_|\\___/ \\_/\\_/  ", "#f472b6"},
}

// PrintBanner writes the ASCII art banner and the version to w.
// Colors are only used when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	p := termenv.Ascii
	if f, ok := w.(*os.File); ok {
		p = termenv.NewOutput(f).EnvColorProfile()
	}

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  v"+version).Faint())
	fmt.Fprintln(w)
}

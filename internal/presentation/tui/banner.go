package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	" _                _  __ _               ",
	"| | ___  __ _  __| |/ _| | _____      __",
	"| |/ _ \\/ _` |/ _` | |_| |/ _ \\ \\ /\\ / /",
	"| |  __/ (_| | (_| |  _| | (_) \\ V  V / ",
	"|_|\\___|\\__,_|\\__,_|_| |_|\\___/ \\_/\\_/  ",
}

// Teal to green, one shade per line.
var bannerColors = []string{"#2dd4bf", "#34d399", "#4ade80", "#a3e635", "#facc15"}

// PrintBanner writes the colored banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}

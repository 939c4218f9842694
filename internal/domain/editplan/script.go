package editplan

import (
	"regexp"
	"strconv"
	"strings"
)

// Beat is one narrative unit of the input script. Seconds is the
// intended on-screen duration, 0 when the script gives no hint.
type Beat struct {
	Index   int
	Text    string
	Seconds float64
}

var (
	bulletRE   = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
	durationRE = regexp.MustCompile(`(?i)\(?\b(\d+(?:\.\d+)?)\s*s(?:ec(?:onds?)?)?\b\)?`)
)

// ParseScript splits a free-text script into ordered beats: one beat
// per non-empty line, bullets and numbering stripped. A duration hint
// like "(5s)" or "5 seconds" anywhere in the line becomes the beat's
// intended duration.
func ParseScript(text string) []Beat {
	var beats []Beat
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = bulletRE.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		b := Beat{Index: len(beats), Text: line}
		if m := durationRE.FindStringSubmatch(line); m != nil {
			if sec, err := strconv.ParseFloat(m[1], 64); err == nil {
				b.Seconds = sec
			}
		}
		beats = append(beats, b)
	}
	return beats
}

// TotalSeconds sums the duration hints of beats that carry one. The
// second return reports whether every beat had a hint; the total
// duration constraint is only checkable when it did.
func TotalSeconds(beats []Beat) (float64, bool) {
	var total float64
	all := len(beats) > 0
	for _, b := range beats {
		if b.Seconds <= 0 {
			all = false
			continue
		}
		total += b.Seconds
	}
	return total, all
}

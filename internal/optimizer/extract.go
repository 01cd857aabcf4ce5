package optimizer

import (
	"regexp"
	"strings"
)

var numberedLine = regexp.MustCompile(`^\d+\.\s*`)

// ExtractBulletPoints parses free-text LLM output into exactly BulletCount
// bullet strings. Extraction strategies are tried in order: marker-prefixed
// lines, numbered-list lines, then a plain line split with heading-like
// lines filtered out. The result is truncated or padded with empty strings
// so callers always get BulletCount entries.
func ExtractBulletPoints(text string) []string {
	marked := markerBullets(text)
	if len(marked) == BulletCount {
		return normalize(marked)
	}

	numbered := numberedBullets(text)
	if len(numbered) == BulletCount {
		return normalize(numbered)
	}

	// Neither pattern produced a clean set of four. Prefer whichever pattern
	// matched at all; fall back to raw lines when both found nothing.
	switch {
	case len(numbered) > 0:
		return normalize(numbered)
	case len(marked) > 0:
		return normalize(marked)
	default:
		return normalize(fallbackLines(text))
	}
}

// markerBullets collects lines prefixed with -, • or *. Unprefixed non-blank
// lines are treated as continuations of the bullet above; a blank line ends
// the current bullet.
func markerBullets(text string) []string {
	var bullets []string
	open := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			open = false
			continue
		}

		if rest, ok := stripMarker(trimmed); ok {
			bullets = append(bullets, rest)
			open = true
			continue
		}

		if open {
			bullets[len(bullets)-1] += " " + trimmed
		}
	}

	return bullets
}

// numberedBullets collects lines of the form "1. text", with the same
// continuation handling as markerBullets.
func numberedBullets(text string) []string {
	var bullets []string
	open := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			open = false
			continue
		}

		if loc := numberedLine.FindString(trimmed); loc != "" {
			bullets = append(bullets, strings.TrimSpace(trimmed[len(loc):]))
			open = true
			continue
		}

		if open {
			bullets[len(bullets)-1] += " " + trimmed
		}
	}

	return bullets
}

// fallbackLines returns all non-empty lines except heading-like ones
// (job/position/experience prefixes), which the generation prompt tends to
// emit above the bullets.
func fallbackLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "experience") ||
			strings.HasPrefix(lower, "job") ||
			strings.HasPrefix(lower, "position") {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}

// stripMarker removes a leading bullet marker. Returns the remainder and
// whether the line carried a marker at all.
func stripMarker(line string) (string, bool) {
	for _, marker := range []string{"-", "•", "*"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	return line, false
}

// normalize trims entries, drops empties, then truncates or pads the result
// to exactly BulletCount strings.
func normalize(bullets []string) []string {
	cleaned := make([]string, 0, BulletCount)
	for _, b := range bullets {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	if len(cleaned) > BulletCount {
		cleaned = cleaned[:BulletCount]
	}
	for len(cleaned) < BulletCount {
		cleaned = append(cleaned, "")
	}
	return cleaned
}

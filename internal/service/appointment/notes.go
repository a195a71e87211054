package appointment

import (
	"strings"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
)

const (
	cancelPrefix = "Motivo cancelacion:"
	noShowPrefix = "No asistio:"
)

// CancellationNote appends the reason line to existing notes. Runs of
// whitespace in reason collapse to one space.
func CancellationNote(existing, reason string, noShow bool) string {
	prefix := cancelPrefix
	if noShow {
		prefix = noShowPrefix
	}
	line := prefix
	if cleaned := strings.Join(strings.Fields(reason), " "); cleaned != "" {
		line = prefix + " " + cleaned
	}
	if trimmed := strings.TrimSpace(existing); trimmed != "" {
		line = trimmed + "\n" + line
	}
	return truncateNotes(line)
}

// StripCancellationNotes removes the lines added by CancellationNote, along
// with blank lines.
func StripCancellationNotes(existing string) string {
	var kept []string
	for _, line := range strings.Split(existing, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, strings.ToLower(cancelPrefix)) || strings.HasPrefix(lower, strings.ToLower(noShowPrefix)) {
			continue
		}
		kept = append(kept, line)
	}
	return truncateNotes(strings.Join(kept, "\n"))
}

func truncateNotes(notes string) string {
	runes := []rune(notes)
	if len(runes) <= model.MaxNotesLength {
		return notes
	}
	return string(runes[:model.MaxNotesLength])
}

package appointment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancellationNote(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		reason   string
		noShow   bool
		want     string
	}{
		{"empty notes", "", "Paciente   enfermo", false, "Motivo cancelacion: Paciente enfermo"},
		{"appends line", "  Primera visita \n", "viaje", false, "Primera visita\nMotivo cancelacion: viaje"},
		{"no show", "Primera visita", "sin aviso", true, "Primera visita\nNo asistio: sin aviso"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CancellationNote(tt.existing, tt.reason, tt.noShow))
		})
	}
}

func TestCancellationNoteIsCapped(t *testing.T) {
	existing := strings.Repeat("á", 1990)
	got := CancellationNote(existing, "motivo largo", false)
	assert.Len(t, []rune(got), 2000)
	assert.True(t, strings.HasPrefix(got, existing+"\nMotivo"))
}

func TestStripCancellationNotes(t *testing.T) {
	notes := "Primera visita\n  motivo CANCELACION: viaje\n\nNo asistio: sin aviso\nTraer estudios"
	assert.Equal(t, "Primera visita\nTraer estudios", StripCancellationNotes(notes))
	assert.Empty(t, StripCancellationNotes("Motivo cancelacion: viaje"))
}

func TestCancelRestoreRoundTrip(t *testing.T) {
	for _, original := range []string{"", "Primera visita", "Linea uno\nLinea dos"} {
		canceled := CancellationNote(original, "  no   puede ", true)
		assert.Equal(t, original, StripCancellationNotes(canceled))
	}
}

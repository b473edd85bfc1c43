package diag_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ShiftingDawn/Feylon/pkg/diag"
	"github.com/ShiftingDawn/Feylon/pkg/source"
)

func TestNewDiagnostic(t *testing.T) {
	w := source.New("test.fey", 0, 4, "foo")
	d := diag.New(diag.UnknownWord, w, "unknown word %q", "foo")
	require.Equal(t, diag.UnknownWord, d.Code)
	require.Equal(t, "unknown word \"foo\"", d.Message)
	require.Nil(t, d.Related)
}

func TestDiagnosticErrorIncludesCodeAndLocation(t *testing.T) {
	w := source.New("test.fey", 3, 1, "foo")
	d := diag.New(diag.UnknownWord, w, "unknown word %q", "foo")
	msg := d.Error()
	require.Contains(t, msg, string(diag.UnknownWord))
	require.Contains(t, msg, "test.fey:4:2")
}

func TestDiagnosticFormatWithSourceLineShowsCaret(t *testing.T) {
	lines := []string{"1 2 foo +"}
	w := source.New("test.fey", 0, 4, "foo")
	d := diag.New(diag.UnknownWord, w, "unknown word %q", "foo")

	out := d.Format(lines, false)
	require.Contains(t, out, "1 2 foo +")
	require.Contains(t, out, "^")
}

func TestDiagnosticWithRelatedRendersBoth(t *testing.T) {
	w := source.New("test.fey", 0, 0, "add")
	related := source.New("test.fey", 2, 0, "add")
	d := diag.New(diag.DuplicateName, w, "duplicate function %q", "add").
		WithRelated(related, "first defined here")

	out := d.Format(nil, false)
	lines := strings.Split(out, "\n")
	require.True(t, len(lines) > 1)
	require.Contains(t, out, "duplicate function")
	require.Contains(t, out, "first defined here")
}

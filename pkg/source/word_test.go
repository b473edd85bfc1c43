package source_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ShiftingDawn/Feylon/pkg/source"
)

func TestNewWord(t *testing.T) {
	w := source.New("test.fey", 2, 4, "dup")
	require.Equal(t, "test.fey", w.File)
	require.Equal(t, 2, w.Row)
	require.Equal(t, 4, w.Col)
	require.Equal(t, "dup", w.Text)
}

func TestWordStringIsOneBased(t *testing.T) {
	w := source.New("test.fey", 0, 0, "dup")
	require.Equal(t, "test.fey:1:1", w.String())
}

package backend_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	"github.com/ShiftingDawn/Feylon/pkg/backend"
	"github.com/ShiftingDawn/Feylon/pkg/eval"
	"github.com/ShiftingDawn/Feylon/pkg/lexer"
	"github.com/ShiftingDawn/Feylon/pkg/link"
	"github.com/ShiftingDawn/Feylon/pkg/token"
)

func readFixture(t *testing.T, file string) string {
	t.Helper()
	contents, err := os.ReadFile(file)
	require.NoError(t, err)
	return string(contents)
}

func TestStringEmitterFormat(t *testing.T) {
	words, d := lexer.Lex("test.fey", "1 2 + dump")
	require.Nil(t, d)
	toks, _, d := token.Tokenize("test.fey", words, ".")
	require.Nil(t, d)
	er, d := eval.Eval(toks)
	require.Nil(t, d)
	lr, d := link.Link(er)
	require.Nil(t, d)

	var out strings.Builder
	require.NoError(t, backend.StringEmitter{}.Emit(&out, lr))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "[0]PushInt(1) //test.fey:1:1", lines[0])
	require.Equal(t, "[2]Intrinsic(+) //test.fey:1:5", lines[2])
}

// TestStringEmitterCorpusSnapshot golden-tests the .cfc representation of
// every fixture under testdata/ against its go-snaps snapshot, grounded on
// CWBudde-go-dws's fixture-driven go-snaps suite.
func TestStringEmitterCorpusSnapshot(t *testing.T) {
	files, err := filepath.Glob("../../testdata/*.fey")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		file := file
		name := strings.TrimSuffix(filepath.Base(file), ".fey")
		t.Run(name, func(t *testing.T) {
			words, d := lexer.Lex(file, readFixture(t, file))
			require.Nil(t, d)
			toks, _, d := token.Tokenize(file, words, filepath.Dir(file))
			require.Nil(t, d)
			er, d := eval.Eval(toks)
			require.Nil(t, d)
			lr, d := link.Link(er)
			require.Nil(t, d)

			var out strings.Builder
			require.NoError(t, backend.StringEmitter{}.Emit(&out, lr))
			snaps.MatchSnapshot(t, out.String())
		})
	}
}

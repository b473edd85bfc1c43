package compiler_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ShiftingDawn/Feylon/pkg/compiler"
)

func TestParseSidecar(t *testing.T) {
	sc, err := compiler.ParseSidecar("0\nout:\n3\n")
	require.NoError(t, err)
	require.Equal(t, 0, sc.ExitCode)
	require.Equal(t, "3\n", sc.Stdout)
	require.Equal(t, "", sc.Stderr)
}

func TestParseSidecarSwitchesStream(t *testing.T) {
	sc, err := compiler.ParseSidecar("1\nout:\npartial\nerr:\nboom\n")
	require.NoError(t, err)
	require.Equal(t, 1, sc.ExitCode)
	require.Equal(t, "partial\n", sc.Stdout)
	require.Equal(t, "boom\n", sc.Stderr)
}

// TestFixtureCorpus runs every <name>.fey/<name>.fey.txt pair under
// testdata/ through the full pipeline, matching spec.md §8's S1-S6
// end-to-end scenarios.
func TestFixtureCorpus(t *testing.T) {
	files, err := filepath.Glob("../../testdata/*.fey")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		file := file
		name := strings.TrimSuffix(filepath.Base(file), ".fey")
		t.Run(name, func(t *testing.T) {
			result, err := compiler.Test(file, compiler.Options{})
			require.NoError(t, err)
			require.True(t, result.Passed, "stdout=%q stderr=%q diag=%v", result.Stdout, result.Stderr, result.Diag)
		})
	}
}

func TestSimulateArithmeticStdout(t *testing.T) {
	var out strings.Builder
	d := compiler.Simulate("../../testdata/s1_arithmetic.fey", &out, compiler.Options{})
	require.Nil(t, d)
	require.Equal(t, "3\n", out.String())
}

func TestSimulateTypeMismatchFails(t *testing.T) {
	var out strings.Builder
	d := compiler.Simulate("../../testdata/s6_type_mismatch.fey", &out, compiler.Options{})
	require.NotNil(t, d)
	require.Equal(t, "TYPE_MISMATCH", string(d.Code))
}

func TestCompileToStringBackend(t *testing.T) {
	var out strings.Builder
	d := compiler.Compile("../../testdata/s1_arithmetic.fey", "string", &out, compiler.Options{})
	require.Nil(t, d)
	require.Contains(t, out.String(), "PushInt(1)")
	require.Contains(t, out.String(), "Intrinsic(+)")
}

func TestCompileUnknownBackend(t *testing.T) {
	var out strings.Builder
	d := compiler.Compile("../../testdata/s1_arithmetic.fey", "nonexistent", &out, compiler.Options{})
	require.NotNil(t, d)
}

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/inodb/vibe-goa/internal/duckdb"
)

const testOBO = `format-version: 1.2

[Term]
id: GO:01
name: process A
namespace: biological_process
`

const testCSV = `,baseMean,log2FoldChange,lfcSE,stat,pvalue,padj
foo,100,-2,0.1,1,0.001,0.01
CG0000,20,4,0.1,1,0.001,0.02
flat,20,0.5,0.1,1,0.001,0.001
`

func testGAF() string {
	line := strings.Join([]string{
		"FB", "FBgn1", "foo", "", "GO:01", "FB:FBrf0000001", "IEA", "",
		"P", "foo protein", "bar", "protein", "taxon:7227", "20240101", "FlyBase",
	}, "\t")
	return "!gaf-version: 2.2\n!\n!\n!\n!\n" + line + "\n"
}

// setup isolates viper and HOME and writes reference files.
func setup(t *testing.T) (oboPath, gafPath string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	oboPath = filepath.Join(dir, "go-basic.obo")
	gafPath = filepath.Join(dir, "fb.gaf")
	require.NoError(t, os.WriteFile(oboPath, []byte(testOBO), 0644))
	require.NoError(t, os.WriteFile(gafPath, []byte(testGAF()), 0644))
	return oboPath, gafPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitError, exitCode(errors.New("boom")))
	assert.Equal(t, ExitUsage, exitCode(&usageError{errors.New("bad flag")}))
}

func TestVersion(t *testing.T) {
	setup(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vibe-goa version dev")
}

func TestUsageErrors(t *testing.T) {
	setup(t)

	_, err := execute(t, "lookup")
	assert.Equal(t, ExitUsage, exitCode(err))

	_, err = execute(t, "annotate", "--no-such-flag")
	assert.Equal(t, ExitUsage, exitCode(err))

	_, err = execute(t, "annotate")
	assert.Equal(t, ExitUsage, exitCode(err), "no inputs and none configured")
}

func TestLookup(t *testing.T) {
	oboPath, gafPath := setup(t)

	out, err := execute(t, "lookup", "--obo", oboPath, "--associations", gafPath, "foo", "bar", "CG0000")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "gene\tOBO_names\tFB_IDs\tGO_IDs", lines[0])
	assert.Equal(t, "foo\tprocess A\tFBgn1\tGO:01", lines[1])
	assert.Equal(t, "bar\tprocess A\tFBgn1\tGO:01", lines[2])
	assert.Equal(t, "CG0000\t-\t-\t-", lines[3])
}

func TestLookup_MissingReferences(t *testing.T) {
	setup(t)
	_, err := execute(t, "lookup", "foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vibe-goa download")
}

func TestLookup_DefaultReferenceLocation(t *testing.T) {
	oboPath, gafPath := setup(t)

	dataDir := defaultDataDir()
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	for src, name := range map[string]string{oboPath: oboFileName, gafPath: gafFileName} {
		data, err := os.ReadFile(src)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), data, 0644))
	}

	foundOBO, foundGAF := FindReferenceFiles()
	assert.Equal(t, filepath.Join(dataDir, oboFileName), foundOBO)
	assert.Equal(t, filepath.Join(dataDir, gafFileName), foundGAF)

	// fb.gaf.gz holds plain text here; the loader sniffs content, not the name.
	out, err := execute(t, "lookup", "foo")
	require.NoError(t, err)
	assert.Contains(t, out, "foo\tprocess A\tFBgn1\tGO:01")
}

func TestAnnotateAndQuery(t *testing.T) {
	oboPath, gafPath := setup(t)

	resultDir := filepath.Join(t.TempDir(), "Hyperoxia")
	require.NoError(t, os.MkdirAll(resultDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(resultDir, "hyp.csv"), []byte(testCSV), 0644))
	dbPath := filepath.Join(t.TempDir(), "anno.duckdb")

	out, err := execute(t, "annotate",
		"--obo", oboPath, "--associations", gafPath,
		"--duckdb", dbPath, resultDir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 file(s): 1 annotated, 0 failed")

	book := filepath.Join(filepath.Dir(resultDir), "Hyperoxia_ANNO", "hyp_ANNO.xlsx")
	f, err := excelize.OpenFile(book)
	require.NoError(t, err)
	rows, err := f.GetRows("both")
	require.NoError(t, err)
	f.Close()
	require.Len(t, rows, 3)
	assert.Equal(t, "foo", rows[1][0])
	assert.Equal(t, "CG0000", rows[2][0])

	out, err = execute(t, "query", "--duckdb", dbPath, "--go-id", "GO:01")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3, "header plus foo in down_regulated and both")
	assert.Contains(t, lines[1], "foo")

	_, err = execute(t, "query", "--duckdb", dbPath)
	assert.Equal(t, ExitUsage, exitCode(err))

	store, err := duckdb.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	refs, ok, err := store.References(filepath.Join(resultDir, "hyp.csv"))
	require.NoError(t, err)
	require.True(t, ok, "provenance is recorded per input")
	assert.Equal(t, oboPath, refs.OBO.Path)
	assert.Equal(t, gafPath, refs.Associations.Path)
}

func TestLookup_OBOStanzas(t *testing.T) {
	_, gafPath := setup(t)
	oboPath := filepath.Join(t.TempDir(), "typedef.obo")
	require.NoError(t, os.WriteFile(oboPath, []byte(testOBO+"\n[Typedef]\nname: part of\n"), 0644))

	out, err := execute(t, "lookup", "--obo", oboPath, "--associations", gafPath, "foo")
	require.NoError(t, err)
	assert.Contains(t, out, "foo\tpart of\tFBgn1\tGO:01", "only [Term] ends a term by default")

	out, err = execute(t, "lookup", "--obo", oboPath, "--associations", gafPath, "--obo-stanzas", "foo")
	require.NoError(t, err)
	assert.Contains(t, out, "foo\tprocess A\tFBgn1\tGO:01")
}

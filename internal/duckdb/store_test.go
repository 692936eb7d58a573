package duckdb

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func sampleRows() []AnnotationRow {
	return []AnnotationRow{
		{
			Sheet: "down_regulated", RowIndex: 0, Gene: "foo",
			Padj: 0.01, Log2FoldChange: -2,
			OBONames: str("process A"), FBIDs: str("FBgn1"), GOIDs: str("GO:01"),
		},
		{
			Sheet: "both", RowIndex: 0, Gene: "foo",
			Padj: 0.01, Log2FoldChange: -2,
			OBONames: str("process A"), FBIDs: str("FBgn1"), GOIDs: str("GO:01"),
		},
		{
			Sheet: "both", RowIndex: 1, Gene: "Adh",
			Padj: 1e-45, Log2FoldChange: 3.2,
			OBONames: str("ethanol oxidation|process A"), FBIDs: str("FBgn0000011"), GOIDs: str("GO:0006069|GO:011"),
		},
		{
			Sheet: "both", RowIndex: 2, Gene: "CG0000",
			Padj: 0.02, Log2FoldChange: 4,
		},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "annotations.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
}

func TestReplaceSourceAndSearchByGene(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.ReplaceSource("a.csv", sampleRows()))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	foo, err := s.SearchByGene("foo")
	require.NoError(t, err)
	require.Len(t, foo, 2)
	assert.Equal(t, "a.csv", foo[0].SourceFile)
	assert.Equal(t, "both", foo[0].Sheet)
	assert.Equal(t, "down_regulated", foo[1].Sheet)
	assert.Equal(t, "process A", foo[0].OBONames.String)
	assert.InDelta(t, -2, foo[0].Log2FoldChange, 1e-12)

	missing, err := s.SearchByGene("CG0000")
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.False(t, missing[0].OBONames.Valid, "failed lookup is stored as NULL")
	assert.False(t, missing[0].GOIDs.Valid)

	none, err := s.SearchByGene("NOTEXIST")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReplaceSource_Idempotent(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.ReplaceSource("a.csv", sampleRows()))
	require.NoError(t, s.ReplaceSource("a.csv", sampleRows()))
	require.NoError(t, s.ReplaceSource("b.csv", sampleRows()[:1]))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.NoError(t, s.ReplaceSource("a.csv", nil))
	n, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReplaceSource_FailureKeepsPreviousRows(t *testing.T) {
	s := openInMemory(t)

	// Recreate the table with a constraint the second batch violates.
	_, err := s.DB().Exec("DROP TABLE " + annotationsTable)
	require.NoError(t, err)
	_, err = s.DB().Exec(`CREATE TABLE ` + annotationsTable + ` (
		source_file VARCHAR,
		sheet VARCHAR,
		row_index INTEGER,
		gene VARCHAR CHECK (gene <> 'bad'),
		padj DOUBLE,
		log2_fold_change DOUBLE,
		obo_names VARCHAR,
		fb_ids VARCHAR,
		go_ids VARCHAR
	)`)
	require.NoError(t, err)

	require.NoError(t, s.ReplaceSource("a.csv", sampleRows()))

	bad := sampleRows()
	bad[len(bad)-1].Gene = "bad"
	require.Error(t, s.ReplaceSource("a.csv", bad))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n, "earlier rows survive a failed replace")

	foo, err := s.SearchByGene("foo")
	require.NoError(t, err)
	assert.Len(t, foo, 2)

	// The store is still usable afterwards.
	require.NoError(t, s.ReplaceSource("a.csv", sampleRows()[:1]))
	n, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSearchByGOID(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.ReplaceSource("a.csv", sampleRows()))

	rows, err := s.SearchByGOID("GO:01")
	require.NoError(t, err)
	require.Len(t, rows, 2, "GO:011 must not match GO:01")
	for _, r := range rows {
		assert.Equal(t, "foo", r.Gene)
	}

	rows, err = s.SearchByGOID("GO:011")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Adh", rows[0].Gene)
}

func TestRecordReferences(t *testing.T) {
	s := openInMemory(t)

	_, ok, err := s.References("a.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	mod := time.Date(2024, 1, 17, 10, 30, 0, 123456789, time.UTC)
	refs := ReferenceSet{
		OBO:          FileFingerprint{Path: "/data/go-basic.obo", Size: 31000000, ModTime: mod},
		Associations: FileFingerprint{Path: "/data/fb.gaf.gz", Size: 5000000, ModTime: mod},
	}
	require.NoError(t, s.RecordReferences("a.csv", refs))
	require.NoError(t, s.RecordReferences("a.csv", refs))

	got, ok, err := s.References("a.csv")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/data/go-basic.obo", got.OBO.Path)
	assert.True(t, got.Equal(refs))
	assert.True(t, got.OBO.ModTime.Equal(mod), "nanosecond mtime survives the round trip")

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+sourcesTable).Scan(&n))
	assert.Equal(t, 1, n)

	newer := refs
	newer.Associations.Size++
	assert.False(t, got.Equal(newer))
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go-basic.obo")
	require.NoError(t, os.WriteFile(path, []byte("format-version: 1.2\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(20), fp.Size)

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

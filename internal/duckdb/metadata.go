package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const sourcesTable = "annotation_sources"

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ReferenceSet identifies the reference files a source was annotated with.
type ReferenceSet struct {
	OBO          FileFingerprint
	Associations FileFingerprint
}

// Equal reports whether both fingerprints match by size and mtime.
// Paths are not compared so a moved file still matches.
func (r ReferenceSet) Equal(o ReferenceSet) bool {
	return sameFile(r.OBO, o.OBO) && sameFile(r.Associations, o.Associations)
}

func sameFile(a, b FileFingerprint) bool {
	return a.Size == b.Size && formatTime(a.ModTime) == formatTime(b.ModTime)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Store) ensureSourcesSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + sourcesTable + ` (
		source_file VARCHAR,
		obo_path VARCHAR,
		obo_size VARCHAR,
		obo_modtime VARCHAR,
		gaf_path VARCHAR,
		gaf_size VARCHAR,
		gaf_modtime VARCHAR,
		annotated_at VARCHAR
	)`)
	return err
}

// RecordReferences stores refs as the provenance of source, replacing any
// earlier entry.
func (s *Store) RecordReferences(source string, refs ReferenceSet) error {
	if _, err := s.db.Exec("DELETE FROM "+sourcesTable+" WHERE source_file = ?", source); err != nil {
		return fmt.Errorf("clear references for %s: %w", source, err)
	}
	_, err := s.db.Exec(`INSERT INTO `+sourcesTable+` VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		source,
		refs.OBO.Path, strconv.FormatInt(refs.OBO.Size, 10), formatTime(refs.OBO.ModTime),
		refs.Associations.Path, strconv.FormatInt(refs.Associations.Size, 10), formatTime(refs.Associations.ModTime),
		formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record references for %s: %w", source, err)
	}
	return nil
}

// References returns the stored provenance for source. The bool is false
// when the source was never recorded.
func (s *Store) References(source string) (ReferenceSet, bool, error) {
	var (
		refs            ReferenceSet
		oboSize, oboMod string
		gafSize, gafMod string
	)
	err := s.db.QueryRow(`SELECT obo_path, obo_size, obo_modtime, gaf_path, gaf_size, gaf_modtime
		FROM `+sourcesTable+` WHERE source_file = ?`, source).
		Scan(&refs.OBO.Path, &oboSize, &oboMod, &refs.Associations.Path, &gafSize, &gafMod)
	if errors.Is(err, sql.ErrNoRows) {
		return ReferenceSet{}, false, nil
	}
	if err != nil {
		return ReferenceSet{}, false, fmt.Errorf("query references for %s: %w", source, err)
	}

	if refs.OBO, err = parseFingerprint(refs.OBO.Path, oboSize, oboMod); err != nil {
		return ReferenceSet{}, false, err
	}
	if refs.Associations, err = parseFingerprint(refs.Associations.Path, gafSize, gafMod); err != nil {
		return ReferenceSet{}, false, err
	}
	return refs, true, nil
}

func parseFingerprint(path, size, mod string) (FileFingerprint, error) {
	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil {
		return FileFingerprint{}, fmt.Errorf("parse size of %s: %w", path, err)
	}
	t, err := time.Parse(time.RFC3339Nano, mod)
	if err != nil {
		return FileFingerprint{}, fmt.Errorf("parse modtime of %s: %w", path, err)
	}
	return FileFingerprint{Path: path, Size: n, ModTime: t}, nil
}

package gaf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTable(t *testing.T) *Table {
	t.Helper()
	input := header +
		gafLine("FBgn1", "foo", "", "GO:01", "P", "", "bar") +
		gafLine("FBgn2", "baz", "NOT involved", "GO:02", "P", "", "")
	table, err := NewLoader().Parse(strings.NewReader(input))
	require.NoError(t, err)
	return table
}

func TestResolve_PrimaryName(t *testing.T) {
	rows := scenarioTable(t).Resolve("foo")
	require.Len(t, rows, 1)
	assert.Equal(t, "FBgn1", rows[0].FBID)
}

func TestResolve_Alias(t *testing.T) {
	rows := scenarioTable(t).Resolve("bar")
	require.Len(t, rows, 1)
	assert.Equal(t, "FBgn1", rows[0].FBID)
}

func TestResolve_NegatedRowExcluded(t *testing.T) {
	assert.Empty(t, scenarioTable(t).Resolve("baz"))
}

func TestResolve_NoMatch(t *testing.T) {
	rows := scenarioTable(t).Resolve("unknown")
	assert.Nil(t, rows)
}

func TestResolve_Rules(t *testing.T) {
	table := NewTable([]Association{
		{FBID: "FBgn10", Name: "Adh", AltNames: "|ADH|Adh-F|"},
		{FBID: "FBgn11", Name: "Adhr", AltNames: "||"},
		{FBID: "FBgn12", Name: "p53", AltNames: "|Dmp53|p53.A|"},
		{FBID: "FBgn13", Name: "cno", AltNames: "|canoe|ADH2|cno|"},
	})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"substring of primary name over-matches", "Adh", []string{"FBgn10", "FBgn11"}},
		{"alias must be a whole token", "ADH", []string{"FBgn10"}},
		{"alias token with hyphen", "Adh-F", []string{"FBgn10"}},
		{"partial alias does not match", "anoe", nil},
		{"case sensitive", "adh", nil},
		{"metacharacters are literal", "p53.A", []string{"FBgn12"}},
		{"dot is not a wildcard", "p53xA", nil},
		{"single letter substring", "p", []string{"FBgn12"}},
		{"both conditions yields row once", "cno", []string{"FBgn13"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range table.Resolve(tt.query) {
				got = append(got, r.FBID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_AliasAlwaysFindsOwner(t *testing.T) {
	table := NewTable([]Association{
		{FBID: "FBgn1", Name: "a", AltNames: wrapAliases("x|y|x")},
		{FBID: "FBgn2", Name: "b", AltNames: wrapAliases("|y|")},
	})

	for _, alias := range []string{"x", "y"} {
		found := false
		for _, r := range table.Resolve(alias) {
			if r.FBID == "FBgn1" {
				found = true
			}
		}
		assert.True(t, found, "alias %q should resolve to FBgn1", alias)
	}
}

func TestTable_Immutable(t *testing.T) {
	src := []Association{{FBID: "FBgn1", Name: "foo", AltNames: "||"}}
	table := NewTable(src)
	src[0].Name = "changed"

	rows := table.Rows()
	rows[0].Name = "also changed"

	resolved := table.Resolve("foo")
	require.Len(t, resolved, 1)
	assert.Equal(t, "foo", resolved[0].Name)
}

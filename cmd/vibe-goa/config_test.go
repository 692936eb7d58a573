package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseConfigValue(t *testing.T) {
	assert.Equal(t, true, parseConfigValue("output.plot", "yes"))
	assert.Equal(t, false, parseConfigValue("reference.strict", "off"))
	assert.Equal(t, 4, parseConfigValue("annotate.workers", "4"))
	assert.Equal(t, 0.01, parseConfigValue("annotate.padj", "0.01"))
	assert.Equal(t, "/data/go-basic.obo", parseConfigValue("reference.obo", "/data/go-basic.obo"))
	assert.Equal(t, []string{"Hyperoxia", "Mutant"}, parseConfigValue("annotate.inputs", "Hyperoxia, Mutant"))
}

func TestConfigSetGet(t *testing.T) {
	setup(t)

	out, err := execute(t, "config", "set", "annotate.padj", "0.01")
	require.NoError(t, err)
	assert.Contains(t, out, "Set annotate.padj = 0.01")

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(home, ".vibe-goa.yaml"))
	require.NoError(t, err)

	var cfg map[string]any
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	require.Contains(t, cfg, "annotate")
	assert.Equal(t, 0.01, cfg["annotate"].(map[string]any)["padj"])

	out, err = execute(t, "config", "get", "annotate.padj")
	require.NoError(t, err)
	assert.Equal(t, "0.01\n", out)
}

func TestConfigSet_UnknownKey(t *testing.T) {
	setup(t)
	_, err := execute(t, "config", "set", "annotate.colour", "blue")
	assert.Equal(t, ExitUsage, exitCode(err))
}

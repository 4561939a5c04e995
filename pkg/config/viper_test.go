package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	v, err := Load(t.TempDir(), "does-not-exist")
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestLoad_ReadsYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "kafka:\n  group_id: from-file\n  brokers: file:9092\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "indexer.yaml"), []byte(yaml), 0o600))

	t.Setenv("KAFKA_BROKERS", "env:9092")

	v, err := Load(dir, "indexer")
	require.NoError(t, err)

	assert.Equal(t, "from-file", v.GetString("kafka.group_id"))
	assert.Equal(t, "env:9092", v.GetString("kafka.brokers"))
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("kafka: [\n"), 0o600))

	_, err := Load(dir, "broken")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList([]string{"a, b", " c "}))
	assert.Equal(t, []string{"x"}, SplitList([]string{"", "x", ","}))
	assert.Empty(t, SplitList(nil))
}

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelCaseInsensitive(t *testing.T) {
	cases := []struct {
		input string
		level string
	}{
		{input: "DEBUG", level: "DEBUG"},
		{input: "Info", level: "INFO"},
		{input: "warn", level: "WARN"},
		{input: "WARNING", level: "WARN"},
		{input: "error", level: "ERROR"},
	}

	for _, tc := range cases {
		level, err := ParseLevel(tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.level, level.String())
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestBuildWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mqttsh.log")
	logger, level, closer, err := Build(Config{Level: "debug", Format: "json", Output: "file", FilePath: path})
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()
	assert.Equal(t, "DEBUG", level.String())

	logger.Info("hello", "topic", "sensors/a")
	closer.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sensors/a")
}

func TestBuildRejectsUnsupportedOutput(t *testing.T) {
	_, _, _, err := Build(Config{Level: "info", Format: "text", Output: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestBuildFileOutputRequiresFilePath(t *testing.T) {
	assert.Error(t, Config{Level: "info", Format: "text", Output: "file"}.Validate())
}

func TestWithDefaultsFillsBlankFields(t *testing.T) {
	c := Config{}.WithDefaults()
	assert.Equal(t, DefaultLevel, c.Level)
	assert.Equal(t, DefaultFormat, c.Format)
	assert.Equal(t, DefaultOutput, c.Output)
}

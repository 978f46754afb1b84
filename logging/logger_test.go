package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()

	file, err := Configure(logger, Options{Level: "debug", Format: FormatJSON, Console: &buf})
	require.NoError(t, err)
	assert.Nil(t, file)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestConfigureBadLevelFallsBackToInfo(t *testing.T) {
	logger := logrus.New()
	_, err := Configure(logger, Options{Level: "loud", Console: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestConfigureBadFormat(t *testing.T) {
	_, err := Configure(logrus.New(), Options{Format: "xml"})
	assert.Error(t, err)
}

func TestConfigureLogFile(t *testing.T) {
	dir := t.TempDir()
	logger := logrus.New()
	file, err := Configure(logger, Options{Level: "info", Location: dir, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	require.NotNil(t, file)

	logger.Info("to file")
	require.NoError(t, file.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "issuer-contract-tests-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

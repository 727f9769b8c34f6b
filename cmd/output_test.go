package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPrintOutput(t *testing.T) {
	data := OperationResult{Success: true, Operation: "start", Level: "user", UnitName: "app.service"}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, "json", data))

		var result OperationResult
		require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
		assert.Equal(t, data, result)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, "YAML", data))

		var result OperationResult
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &result))
		assert.Equal(t, data, result)
		assert.Contains(t, buf.String(), "unitName: app.service")
	})

	t.Run("unsupported", func(t *testing.T) {
		var buf bytes.Buffer
		err := PrintOutput(&buf, "xml", data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format: xml")
		assert.Empty(t, buf.String())
	})
}

func TestValidateOutputFormat(t *testing.T) {
	for _, format := range []string{"text", "json", "yaml", "JSON"} {
		assert.NoError(t, validateOutputFormat(format), format)
	}
	assert.Error(t, validateOutputFormat("table"))
	assert.Error(t, validateOutputFormat(""))
}

func TestStateColor(t *testing.T) {
	assert.Contains(t, stateColor("active"), "active")
	assert.Contains(t, stateColor("failed"), "failed")
	assert.Equal(t, "inactive", stateColor("inactive"))
}

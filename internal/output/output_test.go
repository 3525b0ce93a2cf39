package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Status("🔍", "Checking embedder...")

	output := buf.String()
	assert.Contains(t, output, "🔍")
	assert.Contains(t, output, "Checking embedder...")
}

func TestWriter_Success_PrintsCheckmark(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Success("Index complete!")

	output := buf.String()
	assert.Contains(t, output, "✅")
	assert.Contains(t, output, "Index complete!")
}

func TestWriter_Warning_PrintsWarningIcon(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Warning("Embedder not available")

	output := buf.String()
	assert.Contains(t, output, "⚠️")
	assert.Contains(t, output, "Embedder not available")
}

func TestWriter_Error_PrintsErrorIcon(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Error("Failed to connect")

	output := buf.String()
	assert.Contains(t, output, "❌")
	assert.Contains(t, output, "Failed to connect")
}

func TestWriter_Code_PrintsCodeBlock(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	code := `{"key": "value"}`
	w.Code(code)

	output := buf.String()
	assert.Contains(t, output, `{"key": "value"}`)
}

func TestWriter_Progress_PrintsProgressBar(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Progress(50, 100, "Indexing chunks")

	output := buf.String()
	assert.Contains(t, output, "50%")
	assert.Contains(t, output, "Indexing chunks")
}

func TestWriter_Progress_ZeroTotal_NoOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	assert.NotPanics(t, func() {
		w.Progress(0, 0, "Processing")
	})
	assert.Empty(t, buf.String())
}

func TestWriter_Statusf_FormatsMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Statusf("📂", "Found %d documents in %s", 42, "/path/to/corpus")

	output := buf.String()
	assert.Contains(t, output, "📂")
	assert.Contains(t, output, "Found 42 documents in /path/to/corpus")
}

func TestProgressBar_Render(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		wantFull int
	}{
		{name: "0 percent", current: 0, total: 100, width: 10, wantFull: 0},
		{name: "50 percent", current: 50, total: 100, width: 10, wantFull: 5},
		{name: "100 percent", current: 100, total: 100, width: 10, wantFull: 10},
		{name: "25 percent", current: 25, total: 100, width: 20, wantFull: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderProgressBar(tt.current, tt.total, tt.width)

			filled := strings.Count(bar, "█")
			assert.Equal(t, tt.wantFull, filled)
			assert.Equal(t, tt.width, len([]rune(bar)))
		})
	}
}

func TestWriter_Newline_PrintsEmptyLine(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Newline()

	assert.Equal(t, "\n", buf.String())
}

func TestNew_DefaultsToNoColor(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	assert.NotNil(t, w)
	assert.False(t, w.useColor)
}

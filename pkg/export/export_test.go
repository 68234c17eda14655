package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:       "Enrollment",
		Headers:     []string{"course_code", "enrolled"},
		Rows:        []map[string]string{{"course_code": "CS101", "enrolled": "30"}, {"course_code": "MA201"}},
		GeneratedAt: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestCSVRender(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	assert.Equal(t, []string{"course_code,enrolled", "CS101,30", "MA201,"}, lines)
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestRenderPDF(t *testing.T) {
	file, err := Render(sampleDataset(), FormatPDF, "enrollment")
	require.NoError(t, err)
	assert.Equal(t, "enrollment-20240901-080000.pdf", file.Name)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

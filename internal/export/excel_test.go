package export

import (
	"io"
	"log/slog"
	"testing"

	"github.com/kuato/kuato-be/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerator_Export(t *testing.T) {
	g := NewGenerator(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	urls := []model.ReportURL{
		{
			SearchQueryID: "sq-1",
			Name:          "broken link",
			SourcePageURL: "https://example.com/page",
			FlagURL:       "https://example.com/broken",
			Severity:      "HIGH",
			Status:        "ERROR",
			Reason:        "404",
		},
		{
			SearchQueryID: "sq-2",
			Name:          "stale banner",
			SourcePageURL: "https://example.com/home",
			FlagURL:       "https://example.com/banner",
			Severity:      "LOW",
			Status:        "OK",
		},
	}

	path, err := g.Export(urls, "job-1")
	require.NoError(t, err)
	require.NotEmpty(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + two findings

	assert.Equal(t, "search_query_id", rows[0][0])
	assert.Equal(t, "sq-1", rows[1][0])
	assert.Equal(t, "https://example.com/broken", rows[1][3])
	assert.Equal(t, "stale banner", rows[2][1])
}

func TestGenerator_ExportEmptyReport(t *testing.T) {
	g := NewGenerator(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	path, err := g.Export(nil, "job-2")
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

package integrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "riskmap/pkg/errors"
)

// toneRow builds one 58-column tab-separated export line.
func toneRow(globalEventID, rootCode, lat, lon, avgTone string) string {
	row := make([]string, toneColumnCount)
	for i := range row {
		row[i] = ""
	}
	row[colGlobalEventID] = globalEventID
	row[colSQLDate] = "20260730"
	row[colActor1Name] = "GOVERNMENT"
	row[colActor2Name] = "REBELS"
	row[colEventCode] = "190"
	row[colEventRootCode] = rootCode
	row[colGoldsteinScale] = "-9.0"
	row[colAvgTone] = avgTone
	row[colNumMentions] = "14"
	row[colNumSources] = "4"
	row[colNumArticles] = "9"
	row[colActionGeoName] = "Kharkiv, Ukraine"
	row[colActionGeoCC] = "UP"
	row[colActionGeoLat] = lat
	row[colActionGeoLon] = lon
	row[colSourceURL] = "https://example.com/report"
	return strings.Join(row, "\t")
}

func TestParseToneExport(t *testing.T) {
	input := strings.Join([]string{
		toneRow("1001", "19", "49.99", "36.23", "-8.4"),  // conflict code, kept
		toneRow("1002", "01", "49.99", "36.23", "-2.0"),  // diplomatic code, filtered
		toneRow("1003", "14", "", "", "-5.0"),            // no coordinates, dropped
		toneRow("1004", "18", "31.52", "34.45", "-11.2"), // conflict code, kept
	}, "\n")

	records, err := ParseToneExport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(1001), records[0].GlobalEventID)
	assert.Equal(t, "19", records[0].EventRootCode)
	assert.Equal(t, 20260730, records[0].SQLDate)
	assert.Equal(t, "Kharkiv, Ukraine", records[0].LocationName)
	assert.InDelta(t, -9.0, records[0].GoldsteinScale, 1e-9)
	assert.Equal(t, 14, records[0].NumMentions)

	assert.Equal(t, int64(1004), records[1].GlobalEventID)
}

func TestParseToneExportWrongColumnCount(t *testing.T) {
	_, err := ParseToneExport(strings.NewReader("only\tthree\tcolumns"))
	require.Error(t, err)
	assert.True(t, apperrors.IsSchemaError(err), "wrong width must be a SchemaError, got %v", err)
}

func TestConflictRootCodes(t *testing.T) {
	for _, code := range []string{"14", "15", "16", "17", "18", "19", "20"} {
		assert.True(t, conflictRootCodes[code], "code %s", code)
	}
	for _, code := range []string{"01", "05", "13", "21"} {
		assert.False(t, conflictRootCodes[code], "code %s", code)
	}
}

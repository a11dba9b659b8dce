package integrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "riskmap/pkg/errors"
)

const eventsCSV = `event_id_cnty,event_date,year,event_type,sub_event_type,actor1,actor2,region,country,location,latitude,longitude,fatalities,notes
UKR001,2026-07-28,2026,Battles,Armed clash,Military Forces A,Armed Group B,Europe,Ukraine,Bakhmut,48.5941,37.9999,12,Fighting reported
UKR002,2026-07-29,2026,Explosions/Remote violence,Shelling,Military Forces A,,Europe,Ukraine,Kharkiv,49.9935,36.2304,3,Shelling of residential area
BAD001,2026-07-29,2026,Battles,Armed clash,A,B,Europe,Ukraine,Nowhere,,,"0",no coordinates
`

func TestParseEventsCSV(t *testing.T) {
	records, err := ParseEventsCSV(strings.NewReader(eventsCSV))
	require.NoError(t, err)
	require.Len(t, records, 2, "rows without coordinates are dropped")

	first := records[0]
	assert.Equal(t, "UKR001", first.EventID)
	assert.Equal(t, "Ukraine", first.Country)
	assert.Equal(t, "Battles", first.EventType)
	assert.Equal(t, 12, first.Fatalities)
	assert.InDelta(t, 48.5941, first.Latitude, 1e-6)
	assert.Equal(t, "2026-07-28", first.EventDate.Format("2006-01-02"))
}

func TestParseEventsCSVMissingColumn(t *testing.T) {
	// same file without the latitude column
	broken := `event_id_cnty,event_date,year,event_type,sub_event_type,actor1,actor2,region,country,location,longitude,fatalities
UKR001,2026-07-28,2026,Battles,Armed clash,A,B,Europe,Ukraine,Bakhmut,37.9999,12
`
	_, err := ParseEventsCSV(strings.NewReader(broken))
	require.Error(t, err)
	assert.True(t, apperrors.IsSchemaError(err), "missing column must be a SchemaError, got %v", err)
	assert.Contains(t, err.Error(), "latitude")
}

func TestParseEventsCSVEmptyBody(t *testing.T) {
	onlyHeader := "event_id_cnty,event_date,country,latitude,longitude,event_type,sub_event_type,actor1,actor2,fatalities\n"
	records, err := ParseEventsCSV(strings.NewReader(onlyHeader))
	require.NoError(t, err)
	assert.Empty(t, records)
}

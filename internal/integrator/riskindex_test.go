package integrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "riskmap/pkg/errors"
)

const riskIndexCSV = `date,gpr,gpr_threats,gpr_acts
2026-05,112.4,118.2,104.9
2026-06,135.7,142.1,121.3
2026-07,158.2,171.4,139.8
`

func TestParseRiskIndexCSV(t *testing.T) {
	points, err := ParseRiskIndexCSV(strings.NewReader(riskIndexCSV))
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "2026-05", points[0].Date)
	assert.InDelta(t, 112.4, points[0].GPR, 1e-9)
	assert.InDelta(t, 118.2, points[0].GPRThreats, 1e-9)
	assert.InDelta(t, 104.9, points[0].GPRActs, 1e-9)
	assert.Equal(t, "2026-07", points[2].Date)
}

func TestParseRiskIndexCSVMissingColumn(t *testing.T) {
	broken := "date,gpr_threats,gpr_acts\n2026-05,118.2,104.9\n"
	_, err := ParseRiskIndexCSV(strings.NewReader(broken))
	require.Error(t, err)
	assert.True(t, apperrors.IsSchemaError(err))
	assert.Contains(t, err.Error(), "gpr")
}

func TestParseRiskIndexCSVSkipsBadRows(t *testing.T) {
	withJunk := "date,gpr,gpr_threats,gpr_acts\n2026-05,not-a-number,1,2\n2026-06,135.7,142.1,121.3\n"
	points, err := ParseRiskIndexCSV(strings.NewReader(withJunk))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-06", points[0].Date)
}

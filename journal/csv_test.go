package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	j, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	tests := []struct {
		file string
		want []string
	}{
		{DaysFile, daysHeader},
		{RoundsFile, roundsHeader},
		{RebalancesFile, rebalancesHeader},
		{SummaryFile, summaryHeader},
	}
	for _, tt := range tests {
		rows := readCSV(t, filepath.Join(dir, tt.file))
		require.Len(t, rows, 1, tt.file)
		assert.Equal(t, tt.want, rows[0], tt.file)
	}
}

func TestCSVJournalWrite(t *testing.T) {
	t.Parallel()

	res := fixture(t)
	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, Write(j, res, "spy.csv"))
	require.NoError(t, j.Close())

	days := readCSV(t, filepath.Join(dir, DaysFile))
	require.Len(t, days, len(res.Ledger.Records)+1)
	first := days[1]
	assert.Equal(t, res.RunID, first[0])
	assert.Equal(t, "2024-04-01", first[1])
	assert.Equal(t, "100.000000", first[2])
	assert.Equal(t, "entered", first[3])
	assert.Equal(t, "1", first[4])
	assert.Equal(t, "200.000000", first[5])
	assert.Equal(t, "20000.00", first[6])
	assert.Equal(t, "10000.00", first[7])
	assert.Equal(t, "10000.00", first[8])
	assert.Equal(t, "false", first[10])

	liq := days[5]
	assert.Equal(t, "liquidated", liq[3])
	assert.Equal(t, "true", liq[10])
	assert.Equal(t, "0.000000", liq[5])

	rounds := readCSV(t, filepath.Join(dir, RoundsFile))
	require.Len(t, rounds, 3)
	assert.Equal(t, "margin_call", rounds[1][9])
	assert.Equal(t, "natural_end", rounds[2][9])
	assert.Equal(t, "1", rounds[1][14])

	rebs := readCSV(t, filepath.Join(dir, RebalancesFile))
	require.Len(t, rebs, 2)
	assert.Equal(t, "2024-04-03", rebs[1][1])

	summary := readCSV(t, filepath.Join(dir, SummaryFile))
	fields := map[string]string{}
	for _, row := range summary[1:] {
		assert.Equal(t, res.RunID, row[0])
		fields[row[1]] = row[2]
	}
	assert.Equal(t, "reg_t", fields["account"])
	assert.Equal(t, "profit_threshold", fields["mode"])
	assert.Equal(t, "10000.00", fields["capital"])
	assert.Equal(t, "spy.csv", fields["dataset"])
	assert.Equal(t, "1.000000", fields["liquidations"])
	assert.Equal(t, "1.000000", fields["rebalances"])
}

func TestNewCSVFailsOnUnwritableDir(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	_, err := NewCSV(filepath.Join(blocker, "sub"))
	assert.Error(t, err)
}

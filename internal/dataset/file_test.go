package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWrite_RoundTripWithMissingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json")

	ds := testDataset(day(2024, 6, 20), []float64{0, 60}, []float64{1.5, math.NaN()})
	ds.Attrs["site_ID"] = "NEIU"
	ds.Groups = map[string]*Dataset{
		"monitoring": testDataset(day(2024, 6, 20), []float64{30}, []float64{7}),
	}

	require.NoError(t, Write(path, ds))

	got, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, "NEIU", got.Attrs.String("site_ID"))
	assert.Equal(t, []float64{0, 60}, got.Vars[TimeVar].Values)
	assert.Equal(t, 1.5, got.Vars["backscatter"].Values[0])
	assert.True(t, math.IsNaN(got.Vars["backscatter"].Values[1]), "NaN survives as JSON null")
	require.Contains(t, got.Groups, "monitoring")
	assert.Equal(t, []float64{30}, got.Groups["monitoring"].Vars[TimeVar].Values)
}

func TestReadWrite_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json.gz")

	ds := testDataset(day(2024, 6, 20), []float64{0}, []float64{1})
	require.NoError(t, Write(path, ds))

	// The file on disk is not plain JSON.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, byte('{'), raw[0])

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, got.Vars[TimeVar].Values)
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, "a.json"), testDataset(day(2024, 6, 20), []float64{0}, []float64{1})))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestRead_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Read(path)
	require.Error(t, err)
}

func TestTimeInstants(t *testing.T) {
	ds := testDataset(day(2024, 6, 20), []float64{0, 60.5}, []float64{1, 2})

	instants, err := ds.TimeInstants()
	require.NoError(t, err)
	assert.Equal(t, day(2024, 6, 20), instants[0])
	assert.Equal(t, day(2024, 6, 20).Add(60*time.Second+500*time.Millisecond), instants[1])
}

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/config"
	"github.com/ZanzyTHEbar/dialin/internal/database"
	"github.com/ZanzyTHEbar/dialin/internal/types"
)

func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--data-dir", dir))

	err := cmd.Execute()
	return out.String(), err
}

func seededDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	out, err := runCLI(t, dir, "seed", "--beans", "2", "--shots", "6", "--seed", "7", "--json")
	require.NoError(t, err)

	var res struct {
		Beans int `json:"beans"`
		Shots int `json:"shots"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 2, res.Beans)
	require.Equal(t, 12, res.Shots)
	return dir
}

func TestSeedAndList(t *testing.T) {
	dir := seededDir(t)
	_, err := os.Stat(filepath.Join(dir, database.DBFileName))
	require.NoError(t, err)

	out, err := runCLI(t, dir, "beans", "list", "--json")
	require.NoError(t, err)
	var beans []types.Bean
	require.NoError(t, json.Unmarshal([]byte(out), &beans))
	assert.Len(t, beans, 2)
	for _, b := range beans {
		assert.NotEmpty(t, b.LastGrinderSetting)
	}

	out, err = runCLI(t, dir, "shots", "list", "--limit", "4", "--json")
	require.NoError(t, err)
	var shots []types.Shot
	require.NoError(t, json.Unmarshal([]byte(out), &shots))
	require.Len(t, shots, 4)
	assert.False(t, shots[0].Timestamp.Before(shots[1].Timestamp), "newest first")

	out, err = runCLI(t, dir, "shots", "list", "--bean", beans[0].ID, "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &shots))
	assert.Len(t, shots, 6)

	out, err = runCLI(t, dir, "beans", "list")
	require.NoError(t, err)
	assert.Contains(t, out, beans[0].Name)
}

func TestBeansAdd(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "beans", "add", "--name", "Kenya Nyeri", "--roast-date", "2026-01-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Kenya Nyeri")

	_, err = runCLI(t, dir, "beans", "add", "--name", "", "--roast-date", "2026-01-02")
	assert.Error(t, err)

	out, err = runCLI(t, dir, "beans", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Kenya Nyeri")
}

func TestStatsAndTrend(t *testing.T) {
	dir := seededDir(t)

	out, err := runCLI(t, dir, "stats", "--json")
	require.NoError(t, err)
	var summary analysis.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 12, summary.Count)
	assert.Len(t, summary.ShotsPerBean, 2)

	out, err = runCLI(t, dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Shots:            12")

	out, err = runCLI(t, dir, "trend")
	require.NoError(t, err)
	assert.Contains(t, out, "Older 6 shots")

	_, err = runCLI(t, dir, "stats", "--from", "last week")
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	dir := seededDir(t)

	out, err := runCLI(t, dir, "shots", "list", "--limit", "1", "--json")
	require.NoError(t, err)
	var shots []types.Shot
	require.NoError(t, json.Unmarshal([]byte(out), &shots))
	require.Len(t, shots, 1)

	out, err = runCLI(t, dir, "score", shots[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Score: ")
	assert.Contains(t, out, "Next: ")

	_, err = runCLI(t, dir, "score", "does-not-exist")
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = runCLI(t, dir, "score")
	assert.Error(t, err)
}

func TestRecommend(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		args     []string
		contains string
		wantErr  bool
	}{
		{
			name:     "fast and sour",
			args:     []string{"recommend", "--setting", "12", "--time", "18", "--taste", "sour"},
			contains: "2 step(s) finer to 11.0",
		},
		{
			name:     "on target",
			args:     []string{"recommend", "--setting", "12", "--time", "27", "--taste", "perfect"},
			contains: "keep grind at 12",
		},
		{
			name:     "json",
			args:     []string{"recommend", "--setting", "12", "--time", "40", "--json"},
			contains: `"direction": "coarser"`,
		},
		{
			name:    "missing time",
			args:    []string{"recommend", "--setting", "12"},
			wantErr: true,
		},
		{
			name:    "unknown taste",
			args:    []string{"recommend", "--setting", "12", "--time", "25", "--taste", "salty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, dir, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestSettingsFileSeedsGrinder(t *testing.T) {
	t.Setenv("SETTINGS_FILE", "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "equipment.yaml"),
		[]byte("grinder:\n  scale_min: 0\n  scale_max: 10\n  step_size: 1\n"), 0644))

	_, err := runCLI(t, dir, "recommend", "--setting", "12", "--time", "25")
	require.Error(t, err, "12 is outside the 0-10 scale from the settings file")

	out, err := runCLI(t, dir, "recommend", "--setting", "5", "--time", "18")
	require.NoError(t, err)
	assert.Contains(t, out, "finer to 3")
}

func TestInitWritesDefaultEquipment(t *testing.T) {
	t.Setenv("SETTINGS_FILE", "")
	dir := t.TempDir()

	out, err := runCLI(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "grinder 1-50 step 0.5")

	eq, err := config.ReadEquipment(filepath.Join(dir, config.EquipmentFileName))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEquipment(), eq)

	_, err = runCLI(t, dir, "init")
	assert.ErrorContains(t, err, "--force")

	_, err = runCLI(t, dir, "init", "--force")
	assert.NoError(t, err)

	out, err = runCLI(t, dir, "recommend", "--setting", "12", "--time", "27")
	require.NoError(t, err)
	assert.Contains(t, out, "keep grind at 12")
}

func TestSeedReportsJournalSize(t *testing.T) {
	dir := seededDir(t)

	out, err := runCLI(t, dir, "seed", "--beans", "1", "--shots", "3", "--seed", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 1 beans and 3 shots, journal now holds 15 shots")
}

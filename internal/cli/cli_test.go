package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tao-dosing-engine/internal/domain"
	"github.com/tao-dosing-engine/internal/service"
)

var fixedNow = time.Date(2025, time.June, 16, 9, 0, 0, 0, time.UTC)

// newTestCLI points storage at a fresh temporary directory.
func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	t.Setenv("TAO_STORAGE_DRIVER", "sqlite")
	t.Setenv("TAO_STORAGE_DATA_DIR", t.TempDir())
	t.Setenv("TAO_LOGGING_LEVEL", "error")

	out := &bytes.Buffer{}
	c := New(out, io.Discard, strings.NewReader(""), t.TempDir())
	c.now = func() time.Time { return fixedNow }
	return c, out
}

func run(t *testing.T, c *CLI, out *bytes.Buffer, args ...string) []byte {
	t.Helper()
	out.Reset()
	require.NoError(t, c.Run(context.Background(), args))
	return out.Bytes()
}

func TestCLI_Help(t *testing.T) {
	c, out := newTestCLI(t)

	require.NoError(t, c.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "Commands:")

	out.Reset()
	require.NoError(t, c.Run(context.Background(), []string{"help"}))
	assert.Contains(t, out.String(), "tao-engine evaluate")
}

func TestCLI_UnknownCommand(t *testing.T) {
	c, _ := newTestCLI(t)

	err := c.Run(context.Background(), []string{"classify"})

	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestCLI_Evaluate(t *testing.T) {
	c, out := newTestCLI(t)

	data := run(t, c, out, "evaluate", "-inr", "1.4", "-dose", "35")

	var a service.Assessment
	require.NoError(t, json.Unmarshal(data, &a))
	require.NotNil(t, a.Recommendation)
	assert.Equal(t, domain.GuidelineFCSA, a.Recommendation.Guideline)
	assert.Equal(t, domain.BandSubCritico, a.Recommendation.Band)
	assert.Equal(t, 40.0, a.Recommendation.SuggestedWeeklyDose)
	assert.Equal(t, 5.0, a.Recommendation.LoadingSupplement)
	assert.Equal(t, 6, a.Recommendation.NextControlDays)
	require.NotNil(t, a.Schedule)
	assert.Equal(t, 40.0, a.Schedule.RecurringTotal())
}

func TestCLI_Evaluate_ACCPWithTarget(t *testing.T) {
	c, out := newTestCLI(t)

	data := run(t, c, out, "evaluate", "-guideline", "accp", "-target", "high", "-inr", "6.5", "-dose", "35")

	var a service.Assessment
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, domain.GuidelineACCP, a.Recommendation.Guideline)
	assert.Equal(t, domain.BandSovraCritico, a.Recommendation.Band)
	assert.Equal(t, 2, a.Recommendation.DoseSuspensions)
	assert.Nil(t, a.Recommendation.VitaminK)
}

func TestCLI_Evaluate_Invalid(t *testing.T) {
	c, _ := newTestCLI(t)

	err := c.Run(context.Background(), []string{"evaluate", "-inr", "25", "-dose", "35"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = c.Run(context.Background(), []string{"evaluate", "-inr", "2", "-dose", "35", "-target", "3-2"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = c.Run(context.Background(), []string{"evaluate", "-inr", "2", "-dose", "35", "-guideline", "NICE"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCLI_Schedule(t *testing.T) {
	c, out := newTestCLI(t)

	data := run(t, c, out, "schedule", "-dose", "32.5", "-day", "wed")

	var s domain.WeeklyDoseSchedule
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, 32.5, s.WeeklyDose)
	assert.Equal(t, 32.5, s.RecurringTotal())
	assert.Equal(t, time.Monday, s.Days[0].Day)
}

func TestCLI_RecordAndScore(t *testing.T) {
	c, out := newTestCLI(t)

	run(t, c, out, "record", "-patient", "P001", "-date", "2025-05-01", "-inr", "1.5", "-dose", "35")
	run(t, c, out, "record", "-patient", "P001", "-date", "2025-05-11", "-inr", "3.5", "-dose", "35")
	run(t, c, out, "record", "-patient", "P002", "-date", "2025-05-01", "-inr", "2.5", "-dose", "30")
	run(t, c, out, "record", "-patient", "P002", "-date", "2025-05-21", "-inr", "2.5", "-dose", "30")

	var result domain.TTRResult
	require.NoError(t, json.Unmarshal(run(t, c, out, "ttr", "-patient", "P001"), &result))
	assert.True(t, result.Sufficient)
	assert.Equal(t, 50.0, result.Percentage)
	assert.Equal(t, 10, result.TotalDays)

	var windowed domain.TTRResult
	require.NoError(t, json.Unmarshal(run(t, c, out, "ttr", "-patient", "P001", "-from", "2025-05-03"), &windowed))
	assert.Equal(t, 8, windowed.TotalDays)

	var summary service.CohortSummary
	require.NoError(t, json.Unmarshal(run(t, c, out, "report", "-concurrency", "2"), &summary))
	assert.Equal(t, 2, summary.Scored)
	assert.Equal(t, 75.0, summary.MeanTTR)
	assert.Equal(t, []string{"P001"}, summary.BelowSixty)

	var rolling domain.RollingTTR
	require.NoError(t, json.Unmarshal(run(t, c, out, "rolling", "-patient", "P002", "-months", "1"), &rolling))
	assert.Equal(t, 1, rolling.Months)

	var a service.Assessment
	require.NoError(t, json.Unmarshal(run(t, c, out, "evaluate", "-patient", "P002", "-inr", "2.5", "-dose", "30", "-date", "2025-05-21"), &a))
	require.NotNil(t, a.TTR)
	assert.Equal(t, 100.0, a.TTR.Percentage)
	assert.Equal(t, 42, a.Recommendation.NextControlDays)
}

func TestCLI_RecordRejectsInvalid(t *testing.T) {
	c, _ := newTestCLI(t)

	err := c.Run(context.Background(), []string{"record", "-patient", "P001", "-inr", "0"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCLI_ExportImport(t *testing.T) {
	c, out := newTestCLI(t)
	run(t, c, out, "record", "-patient", "P001", "-date", "2025-05-01", "-inr", "1.5")
	run(t, c, out, "record", "-patient", "P001", "-date", "2025-05-11", "-inr", "3.5")

	file := filepath.Join(t.TempDir(), "history.json")
	run(t, c, out, "export", "-out", file)

	var fromFile domain.TTRResult
	require.NoError(t, json.Unmarshal(run(t, c, out, "ttr", "-file", file, "-patient", "P001"), &fromFile))
	assert.Equal(t, 50.0, fromFile.Percentage)

	// A fresh store imports both observations, then skips them on a second import.
	fresh, freshOut := newTestCLI(t)
	var counts map[string]int
	require.NoError(t, json.Unmarshal(run(t, fresh, freshOut, "import", "-in", file), &counts))
	assert.Equal(t, map[string]int{"imported": 2, "skipped": 0}, counts)

	require.NoError(t, json.Unmarshal(run(t, fresh, freshOut, "import", "-in", file), &counts))
	assert.Equal(t, map[string]int{"imported": 0, "skipped": 2}, counts)
}

func TestCLI_MigrateRequiresPostgres(t *testing.T) {
	c, _ := newTestCLI(t)

	err := c.Run(context.Background(), []string{"migrate", "up"})

	assert.ErrorContains(t, err, "postgres")
}

func TestCLI_InvalidConfiguration(t *testing.T) {
	c, _ := newTestCLI(t)
	t.Setenv("TAO_STORAGE_DRIVER", "mysql")

	err := c.Run(context.Background(), []string{"schedule", "-dose", "35"})

	assert.ErrorContains(t, err, "invalid configuration")
}

func TestCLI_Status(t *testing.T) {
	c, out := newTestCLI(t)

	var before Status
	require.NoError(t, json.Unmarshal(run(t, c, out, "status"), &before))
	assert.Equal(t, "sqlite", before.Driver)
	assert.Equal(t, "FCSA", before.DefaultGuideline)
	assert.False(t, before.HistoryPresent)
	assert.Len(t, before.Issues, 1)

	run(t, c, out, "record", "-patient", "P001", "-inr", "2.5")
	run(t, c, out, "record", "-patient", "P002", "-inr", "2.1")

	var after Status
	require.NoError(t, json.Unmarshal(run(t, c, out, "status"), &after))
	assert.True(t, after.HistoryPresent)
	assert.Equal(t, int64(2), after.Observations)
	assert.Equal(t, 2, after.Patients)
	assert.Empty(t, after.Issues)
}

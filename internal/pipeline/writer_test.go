package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fx-impact-lab/internal/domain"
	"fx-impact-lab/internal/reporting"
	"fx-impact-lab/internal/storage/memory"
)

func TestWriteReport_Stored(t *testing.T) {
	ctx := context.Background()
	stats := memory.NewFamilyStatsStore()
	scores := memory.NewScoreStore()
	require.NoError(t, stats.Upsert(ctx, []*domain.FamilyStats{
		{StatsKey: domain.StatsKey{Family: "NFP", Country: "US", HorizonMinutes: 30, LookbackDays: 1095}, ParamsHash: "h", N: 8, Sufficient: true, MFEP80: 31.5},
	}))
	stored := []*domain.Score{{Family: "NFP", Country: "US", HorizonMinutes: 30, Composite: 70, Grade: "B", N: 8}}
	require.NoError(t, scores.Upsert(ctx, stored))

	report, err := reporting.NewGenerator(stats, scores).WithClock(func() time.Time { return fixedTime }).GenerateStored(ctx)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "nested")
	files, err := WriteReport(dir, []string{FormatMarkdown, FormatCSV, FormatJSON}, report, stored, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, ReportFile),
		filepath.Join(dir, StatsCSVFile),
		filepath.Join(dir, ScoresCSVFile),
		filepath.Join(dir, ScoresJSONFile),
	}, files)

	data, err := os.ReadFile(filepath.Join(dir, ScoresJSONFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"family": "NFP"`)
}

func TestWriteReport_Errors(t *testing.T) {
	_, err := WriteReport("", []string{FormatCSV}, &reporting.Report{}, nil, nil)
	assert.ErrorIs(t, err, ErrNoOutputDir)

	_, err = WriteReport(t.TempDir(), []string{"pdf"}, &reporting.Report{}, nil, nil)
	assert.ErrorContains(t, err, `unknown format "pdf"`)
}

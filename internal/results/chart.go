package results

import (
	"egzersizlab/internal/evaluation"
	"egzersizlab/internal/models"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// TierSummaryChart builds the clinician-facing bar chart of how many
// classified results landed in each tier. Bilateral measurements count
// each side separately.
func TierSummaryChart(records []models.SubmissionRecord) *charts.Bar {
	counts := map[evaluation.Tier]int{}
	for _, rec := range records {
		for _, tier := range []string{rec.LeftTier, rec.RightTier, rec.BalanceTier} {
			if tier != "" {
				counts[evaluation.Tier(tier)]++
			}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Classification Summary",
			Subtitle: "Classified test results per tier",
		}),
	)

	tiers := []evaluation.Tier{evaluation.TierGood, evaluation.TierModerate, evaluation.TierPoor}
	xAxis := make([]string, 0, len(tiers))
	data := make([]opts.BarData, 0, len(tiers))
	for _, tier := range tiers {
		xAxis = append(xAxis, string(tier))
		data = append(data, opts.BarData{Value: counts[tier]})
	}

	bar.SetXAxis(xAxis).AddSeries("results", data)
	return bar
}

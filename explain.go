package brandsim

import (
	"fmt"
	"strconv"
	"strings"
)

// Contribution is one metric's share of the composite score.
type Contribution struct {
	Metric       string  `json:"metric"`
	Raw          float64 `json:"raw"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Explanation breaks a composite score down by metric.
type Explanation struct {
	Rows  []Contribution `json:"rows"`
	Total float64        `json:"total"`
}

// Explain pairs each metric with its weight, in image, color, text order.
// total is reported as given, not recomputed.
func Explain(m MetricScores, w Weights, total float64) Explanation {
	rows := []Contribution{
		{Metric: MetricImage, Raw: m.Image, Weight: w.Image},
		{Metric: MetricColor, Raw: m.Color, Weight: w.Color},
		{Metric: MetricText, Raw: m.Text, Weight: w.Text},
	}
	for i := range rows {
		rows[i].Contribution = rows[i].Raw * rows[i].Weight
	}
	return Explanation{Rows: rows, Total: total}
}

// String renders the breakdown as a plain-text block.
func (e Explanation) String() string {
	var b strings.Builder
	b.WriteString("--- Explainability ---\n")
	for _, r := range e.Rows {
		fmt.Fprintf(&b, "%s contribution: %.3f (raw=%.3f, weight=%s)\n",
			capitalize(r.Metric), r.Contribution, r.Raw, strconv.FormatFloat(r.Weight, 'g', -1, 64))
	}
	fmt.Fprintf(&b, "Total Score: %.3f\n", e.Total)
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

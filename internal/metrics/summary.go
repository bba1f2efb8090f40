package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Summarize renders gathered families as "name{labels} value" lines, sorted
// by name. Histograms report their sample count and sum.
func Summarize(gatherer prometheus.Gatherer) ([]string, error) {
	families, err := gatherer.Gather()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			name := family.GetName() + formatLabels(metric.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s %g", name, metric.GetCounter().GetValue()))
			case dto.MetricType_GAUGE:
				lines = append(lines, fmt.Sprintf("%s %g", name, metric.GetGauge().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%g", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

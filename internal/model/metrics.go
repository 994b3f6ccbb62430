package model

import "fmt"

// Metrics is the structured output of audio analysis. It is a transient value
// passed from the analyzer to the report renderer and is not persisted
// verbatim; only a rendered summary lands in exam_results.
type Metrics struct {
	DurationSeconds  float64 `json:"duration_s"`
	MaxFlowMLPerSec  float64 `json:"max_flow_ml_s"`
	AvgFlowMLPerSec  float64 `json:"avg_flow_ml_s"`
	TotalVolumeML    float64 `json:"total_volume_ml"`
	TimeToPeakSec    float64 `json:"time_to_peak_s"`
	DominantClass    string  `json:"dominant_class"`
}

// MetricField is one labelled measurement ready for rendering.
type MetricField struct {
	Label string
	Value string
}

// Fields returns every metric with a human-readable label, in a stable order.
// The renderer depends on this order being deterministic.
func (m Metrics) Fields() []MetricField {
	return []MetricField{
		{Label: "Duration S", Value: formatMetric(m.DurationSeconds)},
		{Label: "Max Flow Ml S", Value: formatMetric(m.MaxFlowMLPerSec)},
		{Label: "Avg Flow Ml S", Value: formatMetric(m.AvgFlowMLPerSec)},
		{Label: "Total Volume Ml", Value: formatMetric(m.TotalVolumeML)},
		{Label: "Time To Peak S", Value: formatMetric(m.TimeToPeakSec)},
		{Label: "Dominant Class", Value: m.DominantClass},
	}
}

// Summary is the one-line digest stored on the exam result row.
func (m Metrics) Summary() string {
	return fmt.Sprintf("max flow %.1f ml/s, avg flow %.1f ml/s, volume %.0f ml over %.1fs",
		m.MaxFlowMLPerSec, m.AvgFlowMLPerSec, m.TotalVolumeML, m.DurationSeconds)
}

func formatMetric(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

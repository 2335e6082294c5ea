package stats

import (
	"slices"
	"strings"
	"time"
)

// Summary windows.
const (
	recentWindow   = 7 * 24 * time.Hour
	baselineWindow = 28 * 24 * time.Hour
)

// VitalSample is one measurement of a vital such as heart rate variability.
type VitalSample struct {
	Kind       string
	RecordedAt time.Time
	Value      float64
}

// VitalSummary compares the recent values of one kind of vital with its baseline.
// Fields without data are nil so that clients can render a placeholder.
type VitalSummary struct {
	Kind       string     `json:"kind"`
	Latest     *float64   `json:"latest"`
	LatestAt   *time.Time `json:"latest_at"`
	RecentMean *float64   `json:"recent_mean"`
	Baseline   *float64   `json:"baseline"`
	Delta      *float64   `json:"delta"`
	Samples    int        `json:"samples"`
}

// SummarizeVitals summarizes samples per kind, sorted by kind.
//
// RecentMean covers the 7 days before now and Baseline the 28 days before now. Samples after now are ignored.
func SummarizeVitals(samples []VitalSample, now time.Time) []VitalSummary {
	byKind := make(map[string][]VitalSample)
	for _, s := range samples {
		if s.RecordedAt.After(now) {
			continue
		}
		byKind[s.Kind] = append(byKind[s.Kind], s)
	}

	result := make([]VitalSummary, 0, len(byKind))
	for kind, kindSamples := range byKind {
		result = append(result, summarize(kind, kindSamples, now))
	}
	slices.SortFunc(result, func(a, b VitalSummary) int { return strings.Compare(a.Kind, b.Kind) })
	return result
}

func summarize(kind string, samples []VitalSample, now time.Time) VitalSummary {
	summary := VitalSummary{
		Kind:       kind,
		Latest:     nil,
		LatestAt:   nil,
		RecentMean: nil,
		Baseline:   nil,
		Delta:      nil,
		Samples:    len(samples),
	}

	latest := samples[0]
	for _, s := range samples[1:] {
		if s.RecordedAt.After(latest.RecordedAt) {
			latest = s
		}
	}
	summary.Latest = new(latest.Value)
	summary.LatestAt = new(latest.RecordedAt.UTC())

	summary.RecentMean = meanSince(samples, now.Add(-recentWindow))
	summary.Baseline = meanSince(samples, now.Add(-baselineWindow))
	if summary.RecentMean != nil && summary.Baseline != nil {
		summary.Delta = new(*summary.RecentMean - *summary.Baseline)
	}
	return summary
}

// meanSince averages the samples recorded after since, nil when there are none.
func meanSince(samples []VitalSample, since time.Time) *float64 {
	var (
		sum   float64
		count int
	)
	for _, s := range samples {
		if s.RecordedAt.After(since) {
			sum += s.Value
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return new(sum / float64(count))
}

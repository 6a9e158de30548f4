package domain

import "time"

// ExtractionResult is the value every extraction backend returns.
// Failure is a value: callers check Success instead of catching errors.
type ExtractionResult struct {
	// Success is false when the backend could not produce elements.
	Success bool

	// Extractor and Version identify the backend that produced the result.
	Extractor string
	Version   string

	// Elements are in the backend's natural reading order.
	Elements []ElementDraft

	// Stats summarises the run.
	Stats ExtractionStats

	// Error is the human-readable failure reason when Success is false.
	Error string
}

// ExtractionStats summarises one extraction run.
type ExtractionStats struct {
	ElementCount int
	TableCount   int
	ImageCount   int
	Duration     time.Duration
}

// ComputeStats counts elements by kind.
func ComputeStats(elements []ElementDraft, duration time.Duration) ExtractionStats {
	stats := ExtractionStats{
		ElementCount: len(elements),
		Duration:     duration,
	}
	for _, el := range elements {
		switch el.Kind {
		case KindTable:
			stats.TableCount++
		case KindImage, KindDiagram:
			stats.ImageCount++
		}
	}
	return stats
}

// ExtractorInfo describes a backend and its usage counters.
type ExtractorInfo struct {
	Name             string
	Version          string
	SupportedFormats []string
	ExtractionCount  int64

	// LastExtraction is zero when the backend has not run yet.
	LastExtraction time.Time
}

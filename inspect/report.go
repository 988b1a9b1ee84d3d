package inspect

import (
	"fmt"
	"strings"
)

// HealthStatus is the verdict of a diagnosis. Values are ordered by
// severity; a session only ever moves up this order.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	PhysicalCorruption
	DataLoss
	FakeCapacity
)

var statusNames = map[HealthStatus]string{
	Healthy:            "Healthy",
	PhysicalCorruption: "PhysicalCorruption",
	DataLoss:           "DataLoss",
	FakeCapacity:       "FakeCapacity",
}

func (s HealthStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("HealthStatus(%d)", int(s))
}

// MarshalText renders the status by name in JSON and YAML output.
func (s HealthStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *HealthStatus) UnmarshalText(b []byte) error {
	for status, name := range statusNames {
		if strings.EqualFold(name, string(b)) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown health status %q", b)
}

// Escalate returns the more severe of current and next.
func Escalate(current, next HealthStatus) HealthStatus {
	if next > current {
		return next
	}
	return current
}

// Report is the outcome of one verify or probe phase.
type Report struct {
	TotalCapacity uint64       `json:"total_capacity"`
	TestedBytes   uint64       `json:"tested_bytes"`
	ValidBytes    uint64       `json:"valid_bytes"`
	ErrorCount    uint64       `json:"error_count"`
	HealthScore   float64      `json:"health_score"`
	Status        HealthStatus `json:"status"`
	Conclusion    string       `json:"conclusion"`
}

// EndedEarly reports whether fewer bytes were scanned than requested.
func (r Report) EndedEarly() bool {
	return r.TestedBytes < r.TotalCapacity
}

// AnalyzeFailureSample classifies one mismatched block. An all-zero read where
// data was expected is what devices return past their real capacity; any
// other divergence means the stored bytes were altered. ok is false when the
// sample is empty or the lengths differ.
func AnalyzeFailureSample(expected, actual []byte) (status HealthStatus, ok bool) {
	if len(expected) == 0 || len(expected) != len(actual) {
		return Healthy, false
	}
	if allZero(actual) && !allZero(expected) {
		return FakeCapacity, true
	}
	return PhysicalCorruption, true
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

var conclusions = map[HealthStatus]string{
	Healthy:            "No inconsistencies detected.",
	PhysicalCorruption: "Warning: detected random corruption or inconsistent data.",
	DataLoss:           "Warning: read errors or missing data detected.",
	FakeCapacity:       "Warning: detected zero-filled or wrapped data; possible fake capacity.",
}

// GenerateReport turns raw tallies into a Report. sample, when non-nil, is
// the worst classification seen among mismatched blocks and can only raise
// the status.
func GenerateReport(totalCapacity, testedBytes, validBytes, mismatchBlocks, readErrorBlocks uint64, sample *HealthStatus) Report {
	errorCount := mismatchBlocks + readErrorBlocks

	status := Healthy
	if errorCount > 0 {
		status = PhysicalCorruption
	}
	if readErrorBlocks > 0 {
		status = DataLoss
	}
	if sample != nil {
		status = Escalate(status, *sample)
	}

	var score float64
	if totalCapacity > 0 {
		score = float64(validBytes) / float64(totalCapacity) * 100
		score = min(max(score, 0), 100)
	}

	conclusion := fmt.Sprintf("%s Errors: %d.", conclusions[status], errorCount)
	if testedBytes < totalCapacity {
		conclusion += fmt.Sprintf(" Verification ended early after %d / %d bytes.", testedBytes, totalCapacity)
	}

	return Report{
		TotalCapacity: totalCapacity,
		TestedBytes:   testedBytes,
		ValidBytes:    validBytes,
		ErrorCount:    errorCount,
		HealthScore:   score,
		Status:        status,
		Conclusion:    conclusion,
	}
}

package inspect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusPtr(s HealthStatus) *HealthStatus { return &s }

func TestGenerateReportHealthy(t *testing.T) {
	r := GenerateReport(1<<20, 1<<20, 1<<20, 0, 0, nil)
	assert.Equal(t, Healthy, r.Status)
	assert.Zero(t, r.ErrorCount)
	assert.Equal(t, 100.0, r.HealthScore)
	assert.Equal(t, "No inconsistencies detected. Errors: 0.", r.Conclusion)
	assert.False(t, r.EndedEarly())
}

func TestGenerateReportStatusEscalation(t *testing.T) {
	cases := []struct {
		name       string
		mismatch   uint64
		readErrors uint64
		sample     *HealthStatus
		want       HealthStatus
	}{
		{"mismatch only", 3, 0, nil, PhysicalCorruption},
		{"read errors win over mismatches", 3, 1, nil, DataLoss},
		{"read errors alone", 0, 2, nil, DataLoss},
		{"zero sample overrides corruption", 1, 0, statusPtr(FakeCapacity), FakeCapacity},
		{"fake capacity beats data loss", 1, 1, statusPtr(FakeCapacity), FakeCapacity},
		{"sample never downgrades", 0, 1, statusPtr(PhysicalCorruption), DataLoss},
		{"healthy sample is ignored", 2, 0, statusPtr(Healthy), PhysicalCorruption},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := GenerateReport(100, 100, 50, c.mismatch, c.readErrors, c.sample)
			assert.Equal(t, c.want, r.Status)
			assert.Equal(t, c.mismatch+c.readErrors, r.ErrorCount)
		})
	}
}

func TestGenerateReportHealthScore(t *testing.T) {
	assert.Equal(t, 0.0, GenerateReport(0, 0, 0, 0, 0, nil).HealthScore)
	assert.Equal(t, 100.0, GenerateReport(4096, 4096, 4096, 0, 0, nil).HealthScore)
	assert.InDelta(t, 25.0, GenerateReport(4096, 4096, 1024, 1, 0, nil).HealthScore, 1e-9)
	assert.Equal(t, 100.0, GenerateReport(4096, 8192, 8192, 0, 0, nil).HealthScore)
}

func TestGenerateReportEarlyTermination(t *testing.T) {
	r := GenerateReport(8192, 4096, 4096, 0, 0, nil)
	assert.True(t, r.EndedEarly())
	assert.Contains(t, r.Conclusion, "4096")
	assert.Contains(t, r.Conclusion, "8192")
	assert.Contains(t, r.Conclusion, "ended early")
}

func TestAnalyzeFailureSample(t *testing.T) {
	expected := make([]byte, 64)
	Fill(0, expected)

	status, ok := AnalyzeFailureSample(expected, make([]byte, 64))
	require.True(t, ok)
	assert.Equal(t, FakeCapacity, status)

	altered := append([]byte(nil), expected...)
	altered[3] ^= 0xFF
	status, ok = AnalyzeFailureSample(expected, altered)
	require.True(t, ok)
	assert.Equal(t, PhysicalCorruption, status)

	status, ok = AnalyzeFailureSample(make([]byte, 64), make([]byte, 64))
	require.True(t, ok)
	assert.Equal(t, PhysicalCorruption, status)

	_, ok = AnalyzeFailureSample(expected, expected[:10])
	assert.False(t, ok)
	_, ok = AnalyzeFailureSample(nil, nil)
	assert.False(t, ok)
}

func TestEscalate(t *testing.T) {
	assert.Equal(t, DataLoss, Escalate(PhysicalCorruption, DataLoss))
	assert.Equal(t, DataLoss, Escalate(DataLoss, PhysicalCorruption))
	assert.Equal(t, FakeCapacity, Escalate(Healthy, FakeCapacity))
}

func TestReportJSON(t *testing.T) {
	r := GenerateReport(4096, 4096, 0, 1, 0, statusPtr(FakeCapacity))
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"FakeCapacity"`)
	assert.Contains(t, string(b), `"error_count":1`)

	var back Report
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r, back)
}

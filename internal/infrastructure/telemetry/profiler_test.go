package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "school-ledger"}, zap.NewNop())
	assert.Error(t, err)
}

func TestProfileTypes(t *testing.T) {
	assert.Len(t, profileTypes(ProfilerConfig{}), 1)
	assert.Len(t, profileTypes(ProfilerConfig{Memory: true}), 5)
	assert.Len(t, profileTypes(ProfilerConfig{Memory: true, Goroutines: true}), 6)
}

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", MaxLabelValueLength+10)

	pairs := sanitizeLabels(map[string]string{
		"Operation":      OperationRecordPayment,
		"school-id":      "school-a",
		"student_id":     "9f1c",
		"receipt_number": "RCP-1",
		"route":          long,
		"method":         "",
	})

	assert.Equal(t, []string{
		"operation", OperationRecordPayment,
		"route", long[:MaxLabelValueLength],
		"school_id", "school-a",
	}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestSanitizeLabelKey(t *testing.T) {
	tests := map[string]string{
		"school_id":  "school_id",
		"School ID":  "school_id",
		"fee-record": "fee_record",
		"route/*":    "route",
		"%%":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeLabelKey(in), in)
	}
}

func TestLedgerOperationLabels(t *testing.T) {
	assert.Equal(t, map[string]string{
		ProfilingLabelOperation: OperationCarryForward,
		ProfilingLabelSchoolID:  "school-a",
	}, LedgerOperationLabels(OperationCarryForward, "school-a"))

	assert.Equal(t, map[string]string{
		ProfilingLabelOperation: OperationReconcile,
	}, LedgerOperationLabels(OperationReconcile, ""))
}

func TestHTTPRequestLabels_DropsEmpty(t *testing.T) {
	labels := HTTPRequestLabels("ledger", "/api/v1/fee-records/:id", "GET", "")

	assert.Equal(t, map[string]string{
		ProfilingLabelController: "ledger",
		ProfilingLabelRoute:      "/api/v1/fee-records/:id",
		ProfilingLabelMethod:     "GET",
	}, labels)
}

func TestWithProfilingLabels_RunsFn(t *testing.T) {
	called := 0
	WithProfilingLabels(context.Background(), LedgerOperationLabels(OperationAssignFee, "school-a"), func(context.Context) {
		called++
	})
	WithProfilingLabels(context.Background(), nil, func(context.Context) {
		called++
	})
	assert.Equal(t, 2, called)
}

package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelSchoolID   = "school_id"
	ProfilingLabelOperation  = "operation"
)

// MaxLabelValueLength caps label values to keep profile series bounded.
const MaxLabelValueLength = 128

// highCardinalityLabels are never attached to profiles. school_id is allowed;
// per-student and per-record identifiers are not.
var highCardinalityLabels = map[string]bool{
	"student_id":     true,
	"fee_record_id":  true,
	"payment_id":     true,
	"receipt_number": true,
	"request_id":     true,
	"trace_id":       true,
	"span_id":        true,
}

// Ledger operation names used in profiling labels.
const (
	OperationAssignFee      = "assign_fee"
	OperationAdjustFee      = "adjust_fee"
	OperationRefreshOverdue = "refresh_overdue"
	OperationRecordPayment  = "record_payment"
	OperationCancelPayment  = "cancel_payment"
	OperationConcession     = "concession"
	OperationCarryForward   = "carry_forward"
	OperationReconcile      = "reconcile"
	OperationPromote        = "promote"
)

// WithProfilingLabels runs fn with the labels attached to its CPU samples.
// The map is not retained.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// LedgerOperationLabels labels a ledger operation scoped to a school.
func LedgerOperationLabels(operation, schoolID string) map[string]string {
	labels := map[string]string{ProfilingLabelOperation: operation}
	if schoolID != "" {
		labels[ProfilingLabelSchoolID] = schoolID
	}
	return labels
}

// HTTPRequestLabels labels a request by handler, route and school.
func HTTPRequestLabels(controller, route, method, schoolID string) map[string]string {
	labels := make(map[string]string, 4)
	for k, v := range map[string]string{
		ProfilingLabelController: controller,
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
		ProfilingLabelSchoolID:   schoolID,
	} {
		if v != "" {
			labels[k] = v
		}
	}
	return labels
}

// sanitizeLabels returns key/value pairs sorted by key, dropping empty and
// high-cardinality entries and truncating long values.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		clean := sanitizeLabelKey(key)
		if clean == "" || value == "" || highCardinalityLabels[clean] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, clean, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases key and keeps only [a-z0-9_], mapping spaces and dashes to underscores.
func sanitizeLabelKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}

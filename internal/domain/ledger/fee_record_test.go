package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	testClerk = shared.UserActor(uuid.MustParse("6f1c2d9e-0a51-4a8f-9a37-3c1f0b6c7d11"))
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestFeeRecord(t *testing.T, base string, due time.Time) *FeeRecord {
	t.Helper()
	f, err := NewFeeRecord(uuid.New(), NewFeeRecordInput{
		StudentID:      uuid.New(),
		FeeStructureID: uuid.New(),
		AcademicYearID: uuid.New(),
		ClassID:        uuid.New(),
		Category:       FeeCategoryTuition,
		BaseAmount:     dec(base),
		DueDate:        due,
		CreatedBy:      testClerk,
	}, testNow)
	require.NoError(t, err)
	return f
}

func assertComposition(t *testing.T, f *FeeRecord) {
	t.Helper()
	total := f.BaseAmount.Add(f.FineAmount).Sub(f.DiscountAmount).Sub(f.WaiverAmount)
	assert.True(t, total.Equal(f.TotalAmount), "total %s != %s", f.TotalAmount, total)
	assert.False(t, f.TotalAmount.IsNegative())
	remaining := decimal.Max(decimal.Zero, f.TotalAmount.Sub(f.PaidAmount))
	assert.True(t, remaining.Equal(f.RemainingAmount), "remaining %s != %s", f.RemainingAmount, remaining)
}

func countEvents(f *FeeRecord, eventType string) int {
	n := 0
	for _, e := range f.GetDomainEvents() {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

func TestFeeStatus_Classification(t *testing.T) {
	tests := []struct {
		status   FeeStatus
		terminal bool
		closed   bool
	}{
		{FeeStatusPending, false, false},
		{FeeStatusOverdue, false, false},
		{FeeStatusCompleted, true, false},
		{FeeStatusCancelled, true, true},
		{FeeStatusWaived, true, true},
		{FeeStatusVoided, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.IsValid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.closed, tt.status.IsClosed())
		})
	}
	assert.False(t, FeeStatus("deleted").IsValid())
}

func TestNewFeeRecord(t *testing.T) {
	t.Run("defaults and derived amounts", func(t *testing.T) {
		f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))

		assert.Equal(t, FeeStatusPending, f.Status)
		assert.Equal(t, PaymentStatusUnpaid, f.PaymentStatus)
		assert.Equal(t, FeeTypeMandatory, f.FeeType)
		assert.Equal(t, 1, f.InstallmentNumber)
		assert.Equal(t, 1, f.InstallmentOf)
		assert.True(t, f.TotalAmount.Equal(dec("1000")))
		assert.True(t, f.RemainingAmount.Equal(dec("1000")))
		assert.Equal(t, 1, f.Version)
		assert.Equal(t, 1, countEvents(f, EventTypeFeeRecordCreated))
	})

	t.Run("negative base is rejected", func(t *testing.T) {
		_, err := NewFeeRecord(uuid.New(), NewFeeRecordInput{
			StudentID:      uuid.New(),
			AcademicYearID: uuid.New(),
			BaseAmount:     dec("-1"),
			DueDate:        testNow,
		}, testNow)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("installment beyond count is rejected", func(t *testing.T) {
		_, err := NewFeeRecord(uuid.New(), NewFeeRecordInput{
			StudentID:         uuid.New(),
			AcademicYearID:    uuid.New(),
			BaseAmount:        dec("100"),
			DueDate:           testNow,
			InstallmentNumber: 3,
			InstallmentOf:     2,
		}, testNow)
		require.Error(t, err)
	})

	t.Run("zero base completes immediately", func(t *testing.T) {
		f := newTestFeeRecord(t, "0", testNow.AddDate(0, 1, 0))
		assert.Equal(t, FeeStatusCompleted, f.Status)
		assert.Equal(t, PaymentStatusFullyPaid, f.PaymentStatus)
		assert.True(t, f.RemainingAmount.IsZero())
		require.NotNil(t, f.PaidAt)
		assert.Equal(t, 1, countEvents(f, EventTypeFeeStatusChanged))
	})

	t.Run("zero base past due is completed, not overdue", func(t *testing.T) {
		f := newTestFeeRecord(t, "0", testNow.AddDate(0, 0, -10))
		assert.Equal(t, FeeStatusCompleted, f.Status)
		assert.False(t, f.RecomputeStatus(testNow.AddDate(0, 0, 1), shared.SystemActor))
		assert.Equal(t, FeeStatusCompleted, f.Status)
	})
}

func TestFeeRecord_OverdueOnCreation(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 0, -1))

	assert.Equal(t, FeeStatusOverdue, f.Status)
	assert.Equal(t, PaymentStatusUnpaid, f.PaymentStatus)
	assert.Equal(t, 1, countEvents(f, EventTypeFeeStatusChanged))
}

func TestFeeRecord_FullPaymentCompletes(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 0, -1))

	require.NoError(t, f.ApplyPayment(dec("1000"), "R-1", testClerk, testNow))

	assert.True(t, f.RemainingAmount.IsZero())
	assert.Equal(t, FeeStatusCompleted, f.Status)
	assert.Equal(t, PaymentStatusFullyPaid, f.PaymentStatus)
	require.NotNil(t, f.PaidAt)
	assert.Equal(t, testNow, *f.PaidAt)
	assertComposition(t, f)
}

func TestFeeRecord_DiscountThenFine(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))

	require.NoError(t, f.ApplyDiscount(dec("200"), "sibling", testClerk, testNow))
	require.NoError(t, f.ApplyFine(dec("50"), "late", testClerk, testNow))

	assert.True(t, f.TotalAmount.Equal(dec("850")), "got %s", f.TotalAmount)
	assert.True(t, f.RemainingAmount.Equal(dec("850")))
	assert.Contains(t, f.Remarks, "Discount applied: sibling")
	assert.Contains(t, f.Remarks, "Fine applied: late")
	assert.Equal(t, 2, countEvents(f, EventTypeFeeAmountChanged))
	assertComposition(t, f)
}

func TestFeeRecord_FineAccumulates(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))

	require.NoError(t, f.ApplyFine(dec("50"), "late", testClerk, testNow))
	require.NoError(t, f.ApplyFine(dec("25"), "late again", testClerk, testNow))

	assert.True(t, f.FineAmount.Equal(dec("75")))
	assert.True(t, f.TotalAmount.Equal(dec("1075")))

	err := f.ApplyFine(dec("-5"), "oops", testClerk, testNow)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.True(t, f.FineAmount.Equal(dec("75")))
}

func TestFeeRecord_ReverseFine(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
	require.NoError(t, f.ApplyFine(dec("100"), "late", testClerk, testNow))

	require.ErrorIs(t, f.ReverseFine(dec("150"), "too much", testClerk, testNow), ErrInvalidAmount)
	require.Error(t, f.ReverseFine(dec("10"), "", testClerk, testNow))

	require.NoError(t, f.ReverseFine(dec("40"), "partial", testClerk, testNow))
	assert.True(t, f.FineAmount.Equal(dec("60")))
	assertComposition(t, f)
}

func TestFeeRecord_DiscountAndWaiverBounds(t *testing.T) {
	tests := []struct {
		name     string
		discount string
		waiver   string
		wantErr  bool
	}{
		{"within base", "200", "300", false},
		{"discount equals base", "1000", "0", false},
		{"discount above base", "1001", "0", true},
		{"negative waiver", "0", "-1", true},
		{"combined above total", "600", "500", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
			err := f.ApplyDiscount(dec(tt.discount), "d", testClerk, testNow)
			if err == nil {
				err = f.ApplyWaiver(dec(tt.waiver), "w", testClerk, testNow)
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
			} else {
				assert.NoError(t, err)
			}
			assertComposition(t, f)
		})
	}
}

func TestFeeRecord_DiscountOverwrites(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))

	require.NoError(t, f.ApplyDiscount(dec("200"), "first", testClerk, testNow))
	require.NoError(t, f.ApplyDiscount(dec("100"), "second", testClerk, testNow))

	assert.True(t, f.DiscountAmount.Equal(dec("100")))
	assert.Equal(t, "second", f.DiscountReason)
	assert.True(t, f.TotalAmount.Equal(dec("900")))
}

func TestFeeRecord_ConcessionContribution(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
	concessionID := uuid.New()

	require.NoError(t, f.ApplyConcession(concessionID, dec("100"), "merit", testClerk, testNow))
	assert.True(t, f.TotalAmount.Equal(dec("900")))
	require.NotNil(t, f.ConcessionID)
	assert.Equal(t, concessionID, *f.ConcessionID)

	removed, err := f.RemoveConcession(uuid.New(), "other", testClerk, testNow)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = f.RemoveConcession(concessionID, "rejected", testClerk, testNow)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, f.TotalAmount.Equal(dec("1000")))
	assert.Nil(t, f.ConcessionID)
}

func TestFeeRecord_RemoveConcessionReopensCompletedRecord(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
	concessionID := uuid.New()
	require.NoError(t, f.ApplyPayment(dec("900"), "R-1", testClerk, testNow))
	require.NoError(t, f.ApplyConcession(concessionID, dec("100"), "merit", testClerk, testNow))
	require.Equal(t, FeeStatusCompleted, f.Status)
	require.NotNil(t, f.PaidAt)

	removed, err := f.RemoveConcession(concessionID, "documents invalid", testClerk, testNow)

	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, f.TotalAmount.Equal(dec("1000")))
	assert.True(t, f.RemainingAmount.Equal(dec("100")))
	assert.True(t, f.DiscountAmount.IsZero())
	assert.Equal(t, FeeStatusPending, f.Status)
	assert.Equal(t, PaymentStatusPartiallyPaid, f.PaymentStatus)
	assert.Nil(t, f.PaidAt)
	assertComposition(t, f)
}

func TestFeeRecord_RemoveConcessionFromClosedRecord(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
	concessionID := uuid.New()
	require.NoError(t, f.ApplyConcession(concessionID, dec("100"), "merit", testClerk, testNow))
	require.NoError(t, f.Cancel("withdrawn", testClerk, testNow))

	removed, err := f.RemoveConcession(concessionID, "documents invalid", testClerk, testNow)

	assert.ErrorIs(t, err, ErrTerminalStateViolation)
	assert.False(t, removed)
	assert.True(t, f.DiscountAmount.Equal(dec("100")))
}

func TestFeeRecord_PartialPayments(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))

	require.NoError(t, f.ApplyPayment(dec("300"), "R-1", testClerk, testNow))
	assert.Equal(t, PaymentStatusPartiallyPaid, f.PaymentStatus)
	assert.Equal(t, FeeStatusPending, f.Status)

	err := f.ApplyPayment(dec("701"), "R-2", testClerk, testNow)
	assert.ErrorIs(t, err, ErrOverpaymentRejected)
	assert.True(t, f.RemainingAmount.Equal(dec("700")))

	require.NoError(t, f.ApplyPayment(dec("700"), "R-3", testClerk, testNow))
	assert.Equal(t, FeeStatusCompleted, f.Status)
	assertComposition(t, f)
}

func TestFeeRecord_CompletedIsMonotonic(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 0, -10))
	require.NoError(t, f.ApplyPayment(dec("1000"), "R-1", testClerk, testNow))
	require.Equal(t, FeeStatusCompleted, f.Status)

	assert.ErrorIs(t, f.ApplyFine(dec("10"), "late", testClerk, testNow), ErrTerminalStateViolation)
	assert.ErrorIs(t, f.ApplyDiscount(dec("10"), "late", testClerk, testNow), ErrTerminalStateViolation)
	assert.ErrorIs(t, f.ApplyPayment(dec("1"), "R-2", testClerk, testNow), ErrTerminalStateViolation)
	assert.ErrorIs(t, f.RevertPayment(dec("1000"), "bounced", false, testClerk, testNow), ErrTerminalStateViolation)
	assert.ErrorIs(t, f.Cancel("late", testClerk, testNow), ErrTerminalStateViolation)

	later := testNow.AddDate(1, 0, 0)
	assert.False(t, f.RecomputeStatus(later, shared.SystemActor))
	assert.Equal(t, FeeStatusCompleted, f.Status)
}

func TestFeeRecord_ReversalReopens(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 0, -10))
	require.NoError(t, f.ApplyPayment(dec("1000"), "R-1", testClerk, testNow))

	require.NoError(t, f.RevertPayment(dec("1000"), "cheque bounced", true, testClerk, testNow))

	assert.Equal(t, FeeStatusOverdue, f.Status)
	assert.Equal(t, PaymentStatusUnpaid, f.PaymentStatus)
	assert.Nil(t, f.PaidAt)
	assertComposition(t, f)
}

func TestFeeRecord_RecomputeIsIdempotent(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 0, 5))
	require.NoError(t, f.ApplyPayment(dec("400"), "R-1", testClerk, testNow))
	before := f.Snapshot()
	status := f.Status
	events := len(f.GetDomainEvents())

	assert.False(t, f.RecomputeStatus(testNow, shared.SystemActor))
	assert.False(t, f.RecomputeStatus(testNow, shared.SystemActor))

	assert.Equal(t, before, f.Snapshot())
	assert.Equal(t, status, f.Status)
	assert.Len(t, f.GetDomainEvents(), events)
}

func TestFeeRecord_RefreshStatusTurnsOverdue(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 0, 5))
	f.MarkPersisted()

	assert.False(t, f.RefreshStatus(testNow, shared.SystemActor))
	assert.True(t, f.RefreshStatus(testNow.AddDate(0, 0, 6), shared.SystemActor))
	assert.Equal(t, FeeStatusOverdue, f.Status)
	assert.Equal(t, 2, f.Version)
}

func TestFeeRecord_CloseTransitions(t *testing.T) {
	t.Run("cancel requires reason", func(t *testing.T) {
		f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
		require.Error(t, f.Cancel("", testClerk, testNow))
		require.NoError(t, f.Cancel("left school", testClerk, testNow))
		assert.Equal(t, FeeStatusCancelled, f.Status)
		assert.True(t, f.Collectible().IsZero())
	})

	t.Run("waive all", func(t *testing.T) {
		f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
		require.NoError(t, f.WaiveAll("scholarship", testClerk, testNow))
		assert.Equal(t, FeeStatusWaived, f.Status)
		assert.ErrorIs(t, f.Cancel("x", testClerk, testNow), ErrTerminalStateViolation)
		assert.False(t, f.RecomputeStatus(testNow.AddDate(1, 0, 0), shared.SystemActor))
		assert.Equal(t, FeeStatusWaived, f.Status)
	})

	t.Run("void from completed", func(t *testing.T) {
		f := newTestFeeRecord(t, "100", testNow.AddDate(0, 1, 0))
		require.NoError(t, f.ApplyPayment(dec("100"), "R-1", testClerk, testNow))
		require.NoError(t, f.Void("duplicate assignment", testClerk, testNow))
		assert.Equal(t, FeeStatusVoided, f.Status)
		assert.ErrorIs(t, f.Void("again", testClerk, testNow), ErrInvalidTransition)
	})
}

func TestFeeRecord_VersionBumpsOncePerUnit(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
	f.MarkPersisted()

	require.NoError(t, f.ApplyFine(dec("10"), "a", testClerk, testNow))
	require.NoError(t, f.ApplyFine(dec("10"), "b", testClerk, testNow))
	assert.Equal(t, 2, f.Version)
	assert.Equal(t, 1, f.PersistedVersion())

	f.MarkPersisted()
	require.NoError(t, f.ApplyFine(dec("10"), "c", testClerk, testNow))
	assert.Equal(t, 3, f.Version)
}

func TestFeeRecord_AmountChangedEventCarriesBeforeAndAfter(t *testing.T) {
	f := newTestFeeRecord(t, "1000", testNow.AddDate(0, 1, 0))
	f.ClearDomainEvents()

	require.NoError(t, f.ApplyWaiver(dec("250"), "hardship", testClerk, testNow))

	events := f.GetDomainEvents()
	require.Len(t, events, 1)
	e, ok := events[0].(*FeeAmountChangedEvent)
	require.True(t, ok)
	assert.Equal(t, AmountChangeWaiver, e.Change)
	assert.True(t, e.Before.Total.Equal(dec("1000")))
	assert.True(t, e.After.Total.Equal(dec("750")))
	assert.Equal(t, testClerk, e.Actor())
	assert.Equal(t, f.SchoolID, e.SchoolID())
}

package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPromotion(t *testing.T, fromClass uuid.UUID) *StudentPromotion {
	t.Helper()
	p, err := NewStudentPromotion(uuid.New(), NewPromotionInput{
		StudentID:          uuid.New(),
		FromClassID:        fromClass,
		ToClassID:          uuid.New(),
		FromAcademicYearID: uuid.New(),
		ToAcademicYearID:   uuid.New(),
		PromotedBy:         testClerk,
	}, testNow)
	require.NoError(t, err)
	return p
}

func TestNewStudentPromotion(t *testing.T) {
	p := newTestPromotion(t, uuid.New())
	assert.Equal(t, PromotionStatusPending, p.Status)
	assert.Equal(t, testNow, p.PromotionDate)

	year := uuid.New()
	_, err := NewStudentPromotion(uuid.New(), NewPromotionInput{
		StudentID:          uuid.New(),
		FromClassID:        uuid.New(),
		ToClassID:          uuid.New(),
		FromAcademicYearID: year,
		ToAcademicYearID:   year,
	}, testNow)
	assert.Error(t, err)
}

func TestStudentPromotion_Lifecycle(t *testing.T) {
	fromClass := uuid.New()

	t.Run("complete then roll back", func(t *testing.T) {
		p := newTestPromotion(t, fromClass)
		placement := &StudentPlacement{ID: p.StudentID, SchoolID: p.SchoolID, CurrentClassID: fromClass, Version: 4}

		require.NoError(t, placement.MoveTo(p.FromClassID, p.ToClassID, p.ToAcademicYearID))
		require.NoError(t, p.MarkCompleted(testClerk, testNow))
		assert.Equal(t, PromotionStatusCompleted, p.Status)
		assert.Equal(t, p.ToClassID, placement.CurrentClassID)
		assert.Equal(t, 5, placement.Version)

		assert.ErrorIs(t, p.MarkCompleted(testClerk, testNow), ErrInvalidTransition)
		assert.Error(t, p.Rollback("", testClerk, testNow))

		require.NoError(t, placement.MoveTo(p.ToClassID, p.FromClassID, p.FromAcademicYearID))
		require.NoError(t, p.Rollback("wrong class", testClerk, testNow))
		assert.Equal(t, PromotionStatusRolledBack, p.Status)
		assert.Equal(t, fromClass, placement.CurrentClassID)
	})

	t.Run("rollback only from completed", func(t *testing.T) {
		p := newTestPromotion(t, fromClass)
		assert.ErrorIs(t, p.Rollback("why", testClerk, testNow), ErrInvalidTransition)
	})

	t.Run("failure keeps reason", func(t *testing.T) {
		p := newTestPromotion(t, fromClass)
		placement := &StudentPlacement{ID: p.StudentID, CurrentClassID: uuid.New()}

		err := placement.MoveTo(p.FromClassID, p.ToClassID, p.ToAcademicYearID)
		require.ErrorIs(t, err, ErrInvalidTransition)
		require.NoError(t, p.MarkFailed(err.Error(), testClerk, testNow))

		assert.Equal(t, PromotionStatusFailed, p.Status)
		assert.NotEmpty(t, p.FailureReason)
		assert.NotEqual(t, p.ToClassID, placement.CurrentClassID)
	})
}

func TestPromotionStatistics_Add(t *testing.T) {
	var s PromotionStatistics
	s.Add(PromotionStatusCompleted, 5)
	s.Add(PromotionStatusFailed, 2)
	s.Add(PromotionStatus("unknown"), 9)

	assert.Equal(t, int64(7), s.Total)
	assert.Equal(t, int64(5), s.Completed)
	assert.Equal(t, int64(2), s.Failed)
}

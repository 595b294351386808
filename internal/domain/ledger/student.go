package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// StudentPlacement is the class pointer of a student. It is the only student
// state the ledger writes; everything else about students lives elsewhere.
type StudentPlacement struct {
	ID                    uuid.UUID `json:"id"`
	SchoolID              uuid.UUID `json:"school_id"`
	CurrentClassID        uuid.UUID `json:"current_class_id"`
	CurrentAcademicYearID uuid.UUID `json:"current_academic_year_id"`
	Version               int       `json:"version"`
}

// IsIn reports whether the student currently sits in the given class
func (s *StudentPlacement) IsIn(classID uuid.UUID) bool {
	return s.CurrentClassID == classID
}

// MoveTo re-points the student from one class and year to another.
// It fails when the student is no longer in the expected class.
func (s *StudentPlacement) MoveTo(fromClassID, toClassID, toYearID uuid.UUID) error {
	if !s.IsIn(fromClassID) {
		return invalidTransition(s.ID, s.CurrentClassID.String(), toClassID.String()).
			WithDetail("reason", fmt.Sprintf("student is not in class %s", fromClassID))
	}
	s.CurrentClassID = toClassID
	s.CurrentAcademicYearID = toYearID
	s.Version++
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// SchoolAggregateModel provides common persistence fields for school-scoped aggregate roots.
// The creator is stored as a "kind:id" actor reference.
type SchoolAggregateModel struct {
	AggregateModel
	SchoolID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreatedBy shared.ActorRef `gorm:"type:varchar(64)"`
}

// FromDomainSchoolAggregateRoot populates SchoolAggregateModel from domain SchoolAggregateRoot
func (m *SchoolAggregateModel) FromDomainSchoolAggregateRoot(s shared.SchoolAggregateRoot) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.SchoolID = s.SchoolID
	m.CreatedBy = s.CreatedBy
}

// ToDomainSchoolAggregateRoot builds the domain root as read from storage.
func (m *SchoolAggregateModel) ToDomainSchoolAggregateRoot() shared.SchoolAggregateRoot {
	return m.AggregateModel.toSchoolRoot(m.SchoolID, m.CreatedBy)
}

// toSchoolRoot records the loaded version as the persisted one
func (m *AggregateModel) toSchoolRoot(schoolID uuid.UUID, createdBy shared.ActorRef) shared.SchoolAggregateRoot {
	root := shared.SchoolAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		SchoolID:  schoolID,
		CreatedBy: createdBy,
	}
	root.MarkPersisted()
	return root
}

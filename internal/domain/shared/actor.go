package shared

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ActorKind is the closed set of entity kinds that can act on, or receive, ledger records
type ActorKind string

const (
	ActorKindUser    ActorKind = "user"
	ActorKindStudent ActorKind = "student"
	ActorKindSystem  ActorKind = "system"
)

// IsValid checks if the kind is one of the known kinds
func (k ActorKind) IsValid() bool {
	switch k {
	case ActorKindUser, ActorKindStudent, ActorKindSystem:
		return true
	}
	return false
}

// ActorRef references whoever created, approved or processed a record.
// The ledger records the reference only; resolving it to a person is left to the caller.
type ActorRef struct {
	Kind ActorKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// SystemActor is used for changes made by the engine itself (e.g. overdue refresh)
var SystemActor = ActorRef{Kind: ActorKindSystem, ID: uuid.Nil}

// UserActor references a staff user
func UserActor(id uuid.UUID) ActorRef {
	return ActorRef{Kind: ActorKindUser, ID: id}
}

// StudentActor references a student
func StudentActor(id uuid.UUID) ActorRef {
	return ActorRef{Kind: ActorKindStudent, ID: id}
}

// IsZero reports whether the reference is unset
func (a ActorRef) IsZero() bool {
	return a.Kind == "" && a.ID == uuid.Nil
}

// IsSystem reports whether the reference points at the engine itself
func (a ActorRef) IsSystem() bool {
	return a.Kind == ActorKindSystem
}

// Validate checks the kind and that non-system actors carry an ID
func (a ActorRef) Validate() error {
	if !a.Kind.IsValid() {
		return NewDomainError("INVALID_ACTOR", fmt.Sprintf("Unknown actor kind %q", a.Kind))
	}
	if a.Kind != ActorKindSystem && a.ID == uuid.Nil {
		return NewDomainError("INVALID_ACTOR", "Actor ID is required")
	}
	return nil
}

// String encodes the reference as "kind:id"
func (a ActorRef) String() string {
	if a.IsZero() {
		return ""
	}
	return string(a.Kind) + ":" + a.ID.String()
}

// ParseActorRef decodes a "kind:id" reference
func ParseActorRef(s string) (ActorRef, error) {
	if s == "" {
		return ActorRef{}, nil
	}
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return ActorRef{}, fmt.Errorf("malformed actor reference %q", s)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ActorRef{}, fmt.Errorf("malformed actor id in %q: %w", s, err)
	}
	ref := ActorRef{Kind: ActorKind(kind), ID: parsed}
	if !ref.Kind.IsValid() {
		return ActorRef{}, fmt.Errorf("unknown actor kind %q", kind)
	}
	return ref, nil
}

// Value implements driver.Valuer so a reference fits one varchar column
func (a ActorRef) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	return a.String(), nil
}

// Scan implements sql.Scanner
func (a *ActorRef) Scan(value any) error {
	if value == nil {
		*a = ActorRef{}
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return errors.New("failed to scan ActorRef: unsupported type")
	}
	ref, err := ParseActorRef(s)
	if err != nil {
		return err
	}
	*a = ref
	return nil
}

// ActorPtr returns a pointer to a copy of the reference, or nil when it is unset
func ActorPtr(a ActorRef) *ActorRef {
	if a.IsZero() {
		return nil
	}
	return &a
}

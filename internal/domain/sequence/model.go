package sequence

import (
	"fmt"
	"time"
)

// EntityType identifies a family of business codes. Each type carries its own
// per-lab counter, prefix and logical entity name.
type EntityType string

const (
	EntityPatient EntityType = "PATIENT"
	EntityVisit   EntityType = "VISIT"
	EntityDoctor  EntityType = "DOCTOR"
	EntityBilling EntityType = "BILLING"
	EntityReport  EntityType = "REPORT"
)

var entityMeta = map[EntityType]struct {
	prefix string
	name   string
}{
	EntityPatient: {"PAT", "patient"},
	EntityVisit:   {"VIS", "visit"},
	EntityDoctor:  {"DOC", "doctor"},
	EntityBilling: {"BIL", "billing"},
	EntityReport:  {"REP", "report"},
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	_, ok := entityMeta[t]
	return ok
}

// Prefix returns the code prefix for the entity type (e.g. "PAT").
func (t EntityType) Prefix() string {
	return entityMeta[t].prefix
}

// EntityName returns the logical name stored on the counter row.
func (t EntityType) EntityName() string {
	return entityMeta[t].name
}

// Counter is one monotonically increasing sequence, keyed by
// (lab, entity name). LastNumber starts at 0 and only ever grows.
type Counter struct {
	LabID      int64     `db:"lab_id" json:"lab_id"`
	EntityName string    `db:"entity_name" json:"entity_name"`
	LastNumber int64     `db:"last_number" json:"last_number"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FormatCode renders a business code. The lab ID is embedded so codes are
// globally unique even when two labs' counters hold the same value.
func FormatCode(prefix string, labID, number int64) string {
	return fmt.Sprintf("%s%d-%05d", prefix, labID, number)
}

// Package domain defines the persisted document model, value types, and
// typed errors used by wellscope. The entire application state is one
// Document value; every other package consumes it through the store
// contract in persistence.go.
package domain

import "time"

// EntityType identifies the collection a record belongs to.
type EntityType string

// Supported entity type identifiers used in audit entries and persistence buckets.
const (
	// EntityUser identifies an application account record.
	EntityUser EntityType = "user"
	// EntitySession identifies an issued authentication session.
	EntitySession EntityType = "session"
	// EntityOrganization identifies a tenant organization record.
	EntityOrganization EntityType = "organization"
	// EntityDataset identifies an uploaded dataset record.
	EntityDataset EntityType = "dataset"
	// EntityWell identifies a monitored well record.
	EntityWell EntityType = "well"
	// EntityScenario identifies a simulation scenario record.
	EntityScenario EntityType = "scenario"
	// EntityModel identifies a forecast model record.
	EntityModel EntityType = "model"
	// EntityReport identifies a rendered report record.
	EntityReport EntityType = "report"
	// EntityAudit identifies an audit trail entry.
	EntityAudit EntityType = "audit"
)

// DatasetStatus enumerates dataset ingestion states.
type DatasetStatus string

// Canonical dataset statuses.
const (
	DatasetStatusPending  DatasetStatus = "pending"
	DatasetStatusActive   DatasetStatus = "active"
	DatasetStatusArchived DatasetStatus = "archived"
)

// WellStatus enumerates well operating states.
type WellStatus string

// Canonical well statuses.
const (
	WellStatusActive    WellStatus = "active"
	WellStatusSuspended WellStatus = "suspended"
	WellStatusAbandoned WellStatus = "abandoned"
)

// ModelStatus enumerates forecast model lifecycle states.
type ModelStatus string

// Canonical model statuses.
const (
	ModelStatusDraft   ModelStatus = "draft"
	ModelStatusTrained ModelStatus = "trained"
	ModelStatusRetired ModelStatus = "retired"
)

// Action indicates the type of modification recorded in an audit entry.
type Action string

// Audit actions enumerate supported CRUD operations.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Base carries the identity and timestamps shared by all records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents an application account.
type User struct {
	Base
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	FullName       string  `json:"full_name"`
	Role           string  `json:"role"`
	PasswordHash   string  `json:"password_hash"`
	OrganizationID *string `json:"organization_id"`
}

// Session represents an issued authentication session. Sessions are never
// evicted by the store; retention is an open question inherited from the
// source design.
type Session struct {
	Base
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Organization represents a tenant organization.
type Organization struct {
	Base
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Dataset represents an uploaded measurement dataset.
type Dataset struct {
	Base
	OrganizationID string        `json:"organization_id"`
	Name           string        `json:"name"`
	FileName       string        `json:"file_name"`
	Revision       int           `json:"revision"`
	Status         DatasetStatus `json:"status"`
	UploadedBy     string        `json:"uploaded_by"`
}

// Well represents a monitored well.
type Well struct {
	Base
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	FieldName      string     `json:"field_name"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	DepthMeters    float64    `json:"depth_meters"`
	Status         WellStatus `json:"status"`
}

// Scenario represents a saved what-if simulation configuration.
type Scenario struct {
	Base
	DatasetID   string             `json:"dataset_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  map[string]float64 `json:"parameters"`
	CreatedBy   string             `json:"created_by"`
}

// Model represents a forecast model trained over a dataset.
type Model struct {
	Base
	Name      string      `json:"name"`
	Kind      string      `json:"kind"`
	DatasetID string      `json:"dataset_id"`
	Status    ModelStatus `json:"status"`
	TrainedAt *time.Time  `json:"trained_at"`
}

// Report represents a rendered report backed by a file in the storage area.
type Report struct {
	Base
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	FileName       string    `json:"file_name"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// AuditEntry captures a single recorded state change. The audit collection
// grows without bound; no retention policy is defined.
type AuditEntry struct {
	ID         string            `json:"id"`
	Actor      string            `json:"actor"`
	Action     Action            `json:"action"`
	Entity     EntityType        `json:"entity"`
	EntityID   string            `json:"entity_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Meta carries document-level bookkeeping. Version increases monotonically
// and gates the startup migration pass.
type Meta struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is the entire persisted application state. Collections are ordered
// sequences; record identity is the string id, unique within its collection.
// Insertion order carries no guarantee beyond what is currently in the
// sequence; read paths re-sort explicitly.
type Document struct {
	Meta          Meta           `json:"meta"`
	Users         []User         `json:"users"`
	Sessions      []Session      `json:"sessions"`
	Organizations []Organization `json:"organizations"`
	Datasets      []Dataset      `json:"datasets"`
	Wells         []Well         `json:"wells"`
	Scenarios     []Scenario     `json:"scenarios"`
	Models        []Model        `json:"models"`
	Reports       []Report       `json:"reports"`
	Audits        []AuditEntry   `json:"audits"`
}

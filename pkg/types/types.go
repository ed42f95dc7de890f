// Package domain defines the core business types for the print price matrix.
package domain

import (
	"time"
)

// SlotID identifies a positional attribute field in the vendor's pricing
// request payload (e.g. "attr3").
type SlotID string

// Known attribute slots.
const (
	SlotPaper    SlotID = "attr1"
	SlotSize     SlotID = "attr3"
	SlotPage     SlotID = "attr4"
	SlotQuantity SlotID = "attr5"
	SlotTime     SlotID = "attr6"
	SlotBundling SlotID = "attr400"
)

// KnownSlots lists the slot vocabulary in payload order.
var KnownSlots = []SlotID{
	SlotPaper,
	SlotSize,
	SlotPage,
	SlotQuantity,
	SlotTime,
	SlotBundling,
}

// AttributeMapping maps an option name to its attribute slot. It is partial:
// names without an entry go through heuristic resolution.
type AttributeMapping map[string]SlotID

// SlotPayload is the slot → value ID portion of a pricing request.
type SlotPayload map[SlotID]string

// Clone returns a copy of the payload.
func (p SlotPayload) Clone() SlotPayload {
	out := make(SlotPayload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Exclusions names options and individual option values that must not take
// part in an extraction run.
type Exclusions struct {
	Options []string            `json:"exclude_options,omitempty"`
	Values  map[string][]string `json:"exclude_suboptions,omitempty"`
}

// ProductAnalysis is the option-discovery output consumed by an extraction run.
type ProductAnalysis struct {
	ProductName       string           `json:"product_name"                 validate:"required"`
	ProductID         string           `json:"product_id"                   validate:"required"`
	ProductURL        string           `json:"product_url,omitempty"`
	Options           Catalog          `json:"options"                      validate:"dive"`
	AttributeMappings AttributeMapping `json:"attribute_mappings,omitempty"`
}

// Selection is one option's chosen value inside a combination.
type Selection struct {
	Option string      `json:"option"`
	Value  OptionValue `json:"value"`
}

// Combination is one fully specified assignment of a value to every retained
// option. ID is the 1-based position in enumeration order.
type Combination struct {
	ID         int
	Selections []Selection
}

// PriceResult records a single combination's pricing attempt.
type PriceResult struct {
	CombinationID int         `json:"combination_id"         db:"combination_id"`
	ProductName   string      `json:"product_name"           db:"-"`
	Selections    []Selection `json:"selections"             db:"selections"`
	Price         string      `json:"price,omitempty"        db:"price"`
	TotalPrice    string      `json:"total_price,omitempty"  db:"total_price"`
	UnitPrice     string      `json:"unit_price,omitempty"   db:"unit_price"`
	Quantity      string      `json:"quantity,omitempty"     db:"quantity"`
	Turnaround    string      `json:"turnaround,omitempty"   db:"turnaround"`
	Suspicious    bool        `json:"suspicious"             db:"suspicious"`
	Repaired      bool        `json:"repaired,omitempty"     db:"repaired"`
	Attempts      int         `json:"attempts"               db:"attempts"`
	Timestamp     time.Time   `json:"timestamp"              db:"priced_at"`
	Success       bool        `json:"success"                db:"success"`
	Error         string      `json:"error,omitempty"        db:"error_text"`
}

// JobState is the extraction controller's state.
type JobState string

// Job state constants.
const (
	JobIdle        JobState = "idle"
	JobEnumerating JobState = "enumerating"
	JobRunning     JobState = "running"
	JobPaused      JobState = "paused"
	JobCompleted   JobState = "completed"
	JobAborted     JobState = "aborted"
)

// Terminal reports whether no further transitions can happen.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobAborted
}

// Progress is a single progress notification from a running job.
type Progress struct {
	JobID     string   `json:"job_id"`
	Processed int      `json:"processed"`
	Total     int      `json:"total"`
	Message   string   `json:"message"`
	State     JobState `json:"state"`
	Paused    bool     `json:"is_paused"`
}

// ExtractionSummary is the final record of an extraction run.
type ExtractionSummary struct {
	JobID             string     `json:"job_id"                 db:"id"`
	ProductName       string     `json:"product_name"           db:"product_name"`
	ProductID         string     `json:"product_id"             db:"product_id"`
	State             JobState   `json:"state"                  db:"state"`
	TotalCombinations int        `json:"total_combinations"     db:"total_combinations"`
	TotalExtracted    int        `json:"total_extracted"        db:"total_extracted"`
	ErrorCount        int        `json:"error_count"            db:"error_count"`
	SuspiciousCount   int        `json:"suspicious_count"       db:"suspicious_count"`
	SuccessRate       float64    `json:"success_rate"           db:"success_rate"`
	OptionsUsed       []string   `json:"options_used"           db:"options_used"`
	OptionsExcluded   []string   `json:"options_excluded"       db:"options_excluded"`
	RawPath           string     `json:"raw_path,omitempty"     db:"raw_path"`
	PivotPath         string     `json:"pivot_path,omitempty"   db:"pivot_path"`
	Error             string     `json:"error,omitempty"        db:"error_text"`
	StartedAt         time.Time  `json:"started_at"             db:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// SuccessRate returns extracted/total as a percentage, 0 when total is 0.
func SuccessRate(extracted, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(extracted) / float64(total) * 100
}

// JobStatus is a point-in-time view of an extraction job.
type JobStatus struct {
	JobID             string             `json:"job_id"`
	ProductName       string             `json:"product_name"`
	State             JobState           `json:"state"`
	TotalCombinations int                `json:"total_combinations"`
	Processed         int                `json:"processed"`
	ErrorCount        int                `json:"error_count"`
	PauseRequested    bool               `json:"pause_requested"`
	Paused            bool               `json:"is_paused"`
	LastMessage       string             `json:"last_message,omitempty"`
	StartedAt         time.Time          `json:"started_at"`
	Summary           *ExtractionSummary `json:"summary,omitempty"`
}

// JobRun records a single execution of a scheduled maintenance job.
type JobRun struct {
	ID           string     `json:"id"                      db:"id"`
	JobName      string     `json:"job_name"                db:"job_name"`
	StartedAt    time.Time  `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"  db:"completed_at"`
	Status       string     `json:"status"                  db:"status"`
	ErrorText    string     `json:"error_text,omitempty"    db:"error_text"`
	RowsAffected *int       `json:"rows_affected,omitempty" db:"rows_affected"`
}

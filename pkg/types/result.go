// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Result is the object returned to callers of a pipeline run. A run always
// produces a Result; failures are described by Feedback rather than errors.
type Result struct {
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`

	Rows   []Row    `json:"rows" yaml:"rows"`
	Schema []Column `json:"schema" yaml:"schema"`

	// TabularText is the rows rendered as delimited text with a header row.
	TabularText string `json:"tabular_text" yaml:"tabular_text"`

	// Feedback is the human-readable audit log of every decision in the run.
	Feedback string `json:"feedback" yaml:"feedback"`

	// Tier is the extraction tier whose rows were accepted.
	Tier string `json:"tier,omitempty" yaml:"tier,omitempty"`

	// Sentinel is true when Rows holds the diagnostic placeholder row
	// instead of extracted data.
	Sentinel bool `json:"sentinel" yaml:"sentinel"`

	// LowConfidence is set when the fetch success rate fell below threshold.
	LowConfidence bool `json:"low_confidence" yaml:"low_confidence"`

	Attempts []ExtractionAttempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// Stage names reported in ProgressEvent.
const (
	StageRefine    = "refine"
	StageSearch    = "search"
	StageSelect    = "select"
	StageFetch     = "fetch"
	StageCorpus    = "corpus"
	StageStructure = "structure"
	StageOutput    = "output"
)

// ProgressEvent reports pipeline progress to a streaming caller.
type ProgressEvent struct {
	Stage       string `json:"stage"`
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	Detail      string `json:"detail"`
}

// RowsChunk carries a slice of the final rows for incremental consumption.
type RowsChunk struct {
	Rows      []Row `json:"rows_chunk"`
	Offset    int   `json:"offset"`
	TotalRows int   `json:"total_rows"`
}

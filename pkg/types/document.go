// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DocumentType identifies the kind of procedural document being generated.
type DocumentType string

const (
	TypeSOP         DocumentType = "sop"
	TypeBatchRecord DocumentType = "batch_record"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	return t == TypeSOP || t == TypeBatchRecord
}

// Partition returns the storage directory name for this document type.
func (t DocumentType) Partition() string {
	if t == TypeBatchRecord {
		return "batch_records"
	}
	return "sops"
}

// Label returns the document kind heading used in rendered artifacts.
func (t DocumentType) Label() string {
	if t == TypeBatchRecord {
		return "Batch Record"
	}
	return "Standard Operating Procedure (SOP)"
}

// GenerationRequest carries the input fields for one document generation
// call. It is transient; only its copy inside a DocumentRecord persists.
type GenerationRequest struct {
	// Type selects the document kind: sop or batch_record.
	Type DocumentType `json:"type" yaml:"type" validate:"required,oneof=sop batch_record"`

	// Steps is the free-text description of the procedure steps.
	Steps string `json:"steps" yaml:"steps" validate:"required"`

	// Roles is the free-text description of the roles involved.
	Roles string `json:"roles" yaml:"roles" validate:"required"`

	// Notes is optional free-text context.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// WantsArtifact explicitly requests a rendered artifact. The keyword
	// heuristic in the router still applies when the flag is unset.
	WantsArtifact bool `json:"wants_artifact,omitempty" yaml:"wants_artifact,omitempty"`
}

// Feedback is a user rating attached to a stored document.
type Feedback struct {
	// Score is a bounded rating on a 0-5 scale.
	Score float64 `json:"score" yaml:"score"`

	// Text is an optional free-text comment.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Timestamp records when the feedback was attached (yyyymmdd_hhmmss).
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// DocumentRecord is the persisted unit of the document store: one generated
// document together with its input, metadata, and optional feedback. Created
// on generation; mutated exactly once per feedback attachment (re-attachment
// overwrites); never deleted.
type DocumentRecord struct {
	// Key is the storage key, derived from the creation timestamp, document
	// type, and a collision-resistant suffix.
	Key string `json:"key" yaml:"key"`

	// Timestamp is the creation time (yyyymmdd_hhmmss, sortable).
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// Input is the generation request that produced this document.
	Input GenerationRequest `json:"input" yaml:"input"`

	// GeneratedContent is the produced document text.
	GeneratedContent string `json:"generated_content" yaml:"generated_content"`

	// Metadata carries model version, template type, and an optional
	// artifact reference.
	Metadata map[string]string `json:"metadata" yaml:"metadata"`

	// Feedback is nil until a rating is attached.
	Feedback *Feedback `json:"feedback" yaml:"feedback"`
}

// Metadata keys written by the pipeline.
const (
	MetaModelVersion = "model_version"
	MetaTemplateType = "template_type"
	MetaArtifact     = "artifact"
)

// TrainingExample is a read-only view of a fed-back DocumentRecord, the unit
// of the fine-tuning corpus. Always recomputable from the document store.
type TrainingExample struct {
	// RecordKey links the example back to its DocumentRecord, making corpus
	// writes idempotent: re-adding the same key overwrites.
	RecordKey string `json:"record_key" yaml:"record_key"`

	// Input is the original generation request.
	Input GenerationRequest `json:"input" yaml:"input"`

	// Output is the generated document text.
	Output string `json:"output" yaml:"output"`

	// FeedbackScore is the user rating on a 0-5 scale.
	FeedbackScore float64 `json:"feedback_score" yaml:"feedback_score"`

	// FeedbackText is the optional user comment.
	FeedbackText string `json:"feedback_text,omitempty" yaml:"feedback_text,omitempty"`

	// Type is the document type of the source record.
	Type DocumentType `json:"type" yaml:"type"`
}

// TypeStats is the per-document-type portion of a statistics snapshot.
type TypeStats struct {
	Total        int `json:"total" yaml:"total"`
	WithFeedback int `json:"with_feedback" yaml:"with_feedback"`
}

// StatisticsSnapshot aggregates counts over the document store. Computed on
// demand; never persisted.
type StatisticsSnapshot struct {
	TotalDocuments        int       `json:"total_documents" yaml:"total_documents"`
	DocumentsWithFeedback int       `json:"documents_with_feedback" yaml:"documents_with_feedback"`
	AverageFeedbackScore  float64   `json:"average_feedback_score" yaml:"average_feedback_score"`
	SOPs                  TypeStats `json:"sops" yaml:"sops"`
	BatchRecords          TypeStats `json:"batch_records" yaml:"batch_records"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"regexp"

	"github.com/pdiddy/sop-engine/pkg/types"
)

// redactedMarker replaces sensitive identifiers in training data.
const redactedMarker = "[REDACTED]"

// sensitivePatterns match identifiers that must never enter the training
// corpus: employee IDs, concrete batch and lot numbers, and proprietary
// process codes. Generic mentions without an identifier ("lot numbers",
// "the batch") are left alone.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bEMP[-_ ]?\d{3,}\b`),
	regexp.MustCompile(`(?i)\b(?:batch|lot)[-_ ]?(?:no\.?|number|#)?[:# ]*\d[\w-]*\b`),
	regexp.MustCompile(`(?i)\bPROP[-_][A-Z0-9]{3,}\b`),
}

// sanitizeText redacts sensitive identifiers in free text.
func sanitizeText(s string) string {
	for _, re := range sensitivePatterns {
		s = re.ReplaceAllString(s, redactedMarker)
	}
	return s
}

// sanitizeExample redacts sensitive identifiers from every free-text field
// of a training example. Records in the document store keep their original
// content; redaction applies only on the way into the corpus.
func sanitizeExample(ex types.TrainingExample) types.TrainingExample {
	ex.Input.Steps = sanitizeText(ex.Input.Steps)
	ex.Input.Roles = sanitizeText(ex.Input.Roles)
	ex.Input.Notes = sanitizeText(ex.Input.Notes)
	ex.Output = sanitizeText(ex.Output)
	ex.FeedbackText = sanitizeText(ex.FeedbackText)
	return ex
}

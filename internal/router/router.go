// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package router classifies generation requests, deciding between canned
// template content and a generative-model call, and whether a rendered
// artifact should be produced.
package router

import (
	"strings"

	"github.com/pdiddy/sop-engine/pkg/types"
)

// TemplateType tags a canned, non-generative document structure.
type TemplateType string

// TemplateNKCellThawing is the canned template for NK cell thawing
// procedures, a known-common request served without a model call to cap
// latency and guarantee deterministic output.
const TemplateNKCellThawing TemplateType = "NK_cell_thawing"

// cellMarkers and thawMarkers are the keyword sets for template
// classification. Matching is case-insensitive substring search; both a
// cell marker and a thawing marker must appear.
var (
	cellMarkers = []string{"nk", "natural killer"}
	thawMarkers = []string{"thaw", "thawing", "defrost"}
)

// artifactMarkers trigger artifact rendering when mentioned in the steps or
// notes fields. A heuristic with accepted false positives and negatives;
// GenerationRequest.WantsArtifact is the explicit alternative.
var artifactMarkers = []string{"word format", "docx", "word"}

// Classify matches the steps text against the template keyword sets and
// returns the template type to use, if any. Pure function; no other request
// fields participate.
func Classify(steps string) (TemplateType, bool) {
	lower := strings.ToLower(steps)

	if containsAny(lower, cellMarkers) && containsAny(lower, thawMarkers) {
		return TemplateNKCellThawing, true
	}
	return "", false
}

// WantsArtifact reports whether a rendered artifact should be produced for
// the request: always when a template matched, when the request asks
// explicitly, or when the steps or notes mention an output-format keyword.
func WantsArtifact(req types.GenerationRequest, templateMatched bool) bool {
	if templateMatched || req.WantsArtifact {
		return true
	}
	text := strings.ToLower(req.Steps + "\n" + req.Notes)
	return containsAny(text, artifactMarkers)
}

// Decision is the routing outcome for one request.
type Decision struct {
	// TemplateType is set when a canned template matched.
	TemplateType TemplateType

	// UseTemplate selects the canned path; the generative adapter is
	// bypassed entirely.
	UseTemplate bool

	// RenderArtifact selects whether the structured document renderer runs.
	RenderArtifact bool
}

// Route classifies the request and decides the content source and artifact
// rendering.
func Route(req types.GenerationRequest) Decision {
	tmpl, matched := Classify(req.Steps)
	return Decision{
		TemplateType:   tmpl,
		UseTemplate:    matched,
		RenderArtifact: WantsArtifact(req, matched),
	}
}

// TemplateContent returns the fixed-text response for a template type. The
// renderer holds the full prefilled section structure; this text is what the
// caller receives as document content.
func TemplateContent(t TemplateType) string {
	if t == TemplateNKCellThawing {
		return nkCellThawingContent
	}
	return ""
}

const nkCellThawingContent = `Title: NK Cell Thawing Procedure

1. Purpose
This Standard Operating Procedure (SOP) describes the process for thawing Natural Killer (NK) cells while maintaining cell viability and functionality for downstream applications.

2. Scope
This procedure applies to all laboratory personnel involved in the handling and processing of cryopreserved NK cells.

3. Responsibilities
It is the responsibility of all trained laboratory personnel to follow this SOP when thawing NK cells. The Laboratory Supervisor is responsible for ensuring that personnel are properly trained on this procedure.

4. Procedure
Thaw cryopreserved NK cells rapidly in a 37C water bath, dilute dropwise with pre-warmed complete medium, centrifuge, resuspend, and assess viability before culture. The rendered document contains the full step-by-step checklist.

5. Quality Control
Cell viability should be >= 70% post-thaw. If viability is consistently below this threshold, review and optimize the freezing and thawing procedures.`

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

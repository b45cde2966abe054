// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/sop-engine/pkg/types"
)

// DocxMIME is the fixed media type served for rendered artifacts.
const DocxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	timestampLayout = "20060102_150405"
	dateLayout      = "2006-01-02"

	defaultOrganization = "COMPANY LOGO"
)

// now is the clock for artifact timestamps and effective dates. Tests
// override it for deterministic filenames.
var now = time.Now

// unsafeChars matches everything stripped from a title when building an
// artifact filename.
var unsafeChars = regexp.MustCompile(`[^\w\s-]`)

// Renderer emits styled Word artifacts into a fixed output directory.
type Renderer struct {
	outputDir    string
	organization string
}

// New creates the artifact output directory if absent and returns a
// Renderer writing into it.
func New(cfg types.RenderConfig) (*Renderer, error) {
	dir := cfg.OutputDir
	if dir == "" {
		dir = "generated_docs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory %s: %v", types.ErrRender, dir, err)
	}

	org := cfg.Organization
	if org == "" {
		org = defaultOrganization
	}
	return &Renderer{outputDir: dir, organization: org}, nil
}

// OutputDir returns the artifact directory.
func (r *Renderer) OutputDir() string {
	return r.outputDir
}

// Render builds the artifact for the given content and writes it under the
// output directory. templateType selects a prefilled section set; when it is
// empty or unrecognized the content is parsed instead. Returns the artifact
// filename (base name, the retrieval key). Failures wrap ErrRender.
func (r *Renderer) Render(content string, docType types.DocumentType, templateType, docID string) (string, error) {
	date := now().Format(dateLayout)

	doc, ok := TemplateDocument(templateType, date)
	if !ok {
		doc = ParseSections(content)
	}

	title := ExtractTitle(content, defaultTitle(docType))
	if docID == "" {
		docID = "SOP-" + now().Format("20060102")
	}

	filename := safeFilename(title) + "_" + now().Format(timestampLayout) + ".docx"
	path := filepath.Join(r.outputDir, filename)

	if err := writeDocx(doc, title, docID, docType.Label(), r.organization, date, path); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", types.ErrRender, path, err)
	}
	return filename, nil
}

func defaultTitle(docType types.DocumentType) string {
	if docType == types.TypeBatchRecord {
		return "Batch Record"
	}
	return "Standard Operating Procedure"
}

// safeFilename strips non-word characters from the title and replaces
// spaces with underscores.
func safeFilename(title string) string {
	s := unsafeChars.ReplaceAllString(title, "")
	s = strings.TrimSpace(s)
	return strings.Join(strings.Fields(s), "_")
}

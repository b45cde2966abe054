// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"strings"
	"testing"

	"github.com/pdiddy/sop-engine/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		steps     string
		wantTmpl  TemplateType
		wantMatch bool
	}{
		{
			name:      "nk thawing matches",
			steps:     "Thaw NK cells in a water bath",
			wantTmpl:  TemplateNKCellThawing,
			wantMatch: true,
		},
		{
			name:      "natural killer spelled out",
			steps:     "Defrost the natural killer cell vial",
			wantTmpl:  TemplateNKCellThawing,
			wantMatch: true,
		},
		{
			name:      "case insensitive",
			steps:     "THAWING nk CELLS",
			wantTmpl:  TemplateNKCellThawing,
			wantMatch: true,
		},
		{
			name:  "cell marker without thawing marker",
			steps: "Culture NK cells in complete medium",
		},
		{
			name:  "thawing marker without cell marker",
			steps: "Thaw the reagent at room temperature",
		},
		{
			name:  "unrelated procedure",
			steps: "Calibrate the centrifuge before use",
		},
		{
			name:  "empty steps",
			steps: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, matched := Classify(tt.steps)
			if matched != tt.wantMatch {
				t.Fatalf("Classify(%q) matched = %v, want %v", tt.steps, matched, tt.wantMatch)
			}
			if tmpl != tt.wantTmpl {
				t.Errorf("Classify(%q) = %q, want %q", tt.steps, tmpl, tt.wantTmpl)
			}
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	steps := "Thaw NK cells in a 37C water bath"
	first, _ := Classify(steps)
	for i := 0; i < 10; i++ {
		got, _ := Classify(steps)
		if got != first {
			t.Fatalf("classification changed between calls: %q then %q", first, got)
		}
	}
}

func TestWantsArtifact(t *testing.T) {
	tests := []struct {
		name    string
		req     types.GenerationRequest
		matched bool
		want    bool
	}{
		{
			name:    "template match forces artifact",
			req:     types.GenerationRequest{Steps: "anything"},
			matched: true,
			want:    true,
		},
		{
			name: "explicit request flag",
			req:  types.GenerationRequest{Steps: "mix reagents", WantsArtifact: true},
			want: true,
		},
		{
			name: "docx keyword in steps",
			req:  types.GenerationRequest{Steps: "mix reagents, output as docx"},
			want: true,
		},
		{
			name: "word format keyword in notes",
			req:  types.GenerationRequest{Steps: "mix reagents", Notes: "deliver in Word format"},
			want: true,
		},
		{
			name: "no trigger",
			req:  types.GenerationRequest{Steps: "mix reagents", Notes: "urgent"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WantsArtifact(tt.req, tt.matched); got != tt.want {
				t.Errorf("WantsArtifact = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoute(t *testing.T) {
	d := Route(types.GenerationRequest{
		Type:  types.TypeSOP,
		Steps: "Thaw NK cells in a water bath",
	})
	if !d.UseTemplate {
		t.Error("template request should route to canned content")
	}
	if d.TemplateType != TemplateNKCellThawing {
		t.Errorf("got template %q", d.TemplateType)
	}
	if !d.RenderArtifact {
		t.Error("template match should force artifact rendering")
	}

	d = Route(types.GenerationRequest{
		Type:  types.TypeSOP,
		Steps: "Calibrate the centrifuge",
	})
	if d.UseTemplate {
		t.Error("non-template request should route to the model")
	}
	if d.RenderArtifact {
		t.Error("plain request should not render an artifact")
	}
}

func TestTemplateContent(t *testing.T) {
	content := TemplateContent(TemplateNKCellThawing)
	if !strings.HasPrefix(content, "Title: NK Cell Thawing Procedure") {
		t.Errorf("template content missing title, got %q", content[:40])
	}
	for _, section := range []string{"1. Purpose", "2. Scope", "3. Responsibilities", "4. Procedure", "5. Quality Control"} {
		if !strings.Contains(content, section) {
			t.Errorf("template content missing section %q", section)
		}
	}

	if got := TemplateContent("unknown"); got != "" {
		t.Errorf("unknown template should return empty content, got %q", got)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import "fmt"

// TemplateNKCellThawing is the template type rendered with the prefilled NK
// cell thawing section set instead of parsed content.
const TemplateNKCellThawing = "NK_cell_thawing"

// TemplateDocument returns the fixed section set for a recognized template
// type, or false when the type is unknown and the content should be parsed
// instead.
func TemplateDocument(templateType, effectiveDate string) (Document, bool) {
	if templateType == TemplateNKCellThawing {
		return nkCellThawingDocument(effectiveDate), true
	}
	return Document{}, false
}

// nkCellThawingDocument builds the eight prefilled sections of the NK cell
// thawing procedure. Content is fixed domain text, not derived from the
// request input.
func nkCellThawingDocument(effectiveDate string) Document {
	return Document{
		Sections: []RenderedSection{
			{
				Label: "1", Title: "PURPOSE", Heading: "1. PURPOSE",
				Paragraphs: []Paragraph{{Text: "This Standard Operating Procedure (SOP) describes the process for thawing Natural Killer (NK) cells while maintaining cell viability and functionality for downstream applications."}},
			},
			{
				Label: "2", Title: "SCOPE", Heading: "2. SCOPE",
				Paragraphs: []Paragraph{{Text: "This procedure applies to all laboratory personnel involved in the handling and processing of cryopreserved NK cells."}},
			},
			{
				Label: "3", Title: "RESPONSIBILITIES", Heading: "3. RESPONSIBILITIES",
				Paragraphs: []Paragraph{{Text: "It is the responsibility of all trained laboratory personnel to follow this SOP when thawing NK cells. The Laboratory Supervisor is responsible for ensuring that personnel are properly trained on this procedure."}},
			},
			{
				Label: "4", Title: "MATERIALS AND EQUIPMENT", Heading: "4. MATERIALS AND EQUIPMENT",
				Paragraphs: bullets(
					"Personal Protective Equipment (PPE): lab coat, gloves, safety glasses",
					"Water bath set to 37°C",
					"Timer",
					"70% ethanol spray",
					"Sterile serological pipettes (5 mL, 10 mL, 25 mL)",
					"Pipette controller",
					"Centrifuge tubes (15 mL, 50 mL)",
					"Complete culture medium (pre-warmed to 37°C)",
					"Centrifuge",
					"Biosafety cabinet (BSC)",
					"Cell counting equipment (hemocytometer or automated cell counter)",
					"Trypan blue solution (0.4%)",
					"Cryovial containing frozen NK cells",
				),
			},
			{
				Label: "5", Title: "PROCEDURE", Heading: "5. PROCEDURE",
				Subsections: []RenderedSection{
					checklist("5.1", "Preparation",
						"Ensure all required materials and equipment are available.",
						"Turn on the biosafety cabinet and allow it to run for at least 15 minutes before use.",
						"Set the water bath to 37°C and verify the temperature with a thermometer.",
						"Pre-warm complete culture medium to 37°C.",
						"Label all tubes clearly with the sample information.",
					),
					checklist("5.2", "Thawing Procedure",
						"Remove the cryovial containing NK cells from liquid nitrogen storage and immediately place it into a container with dry ice or a portable LN2 container.",
						"Transport the cryovial to the water bath area.",
						"Partially submerge the cryovial in the 37°C water bath, ensuring the cap remains above the water level to prevent contamination.",
						"Gently swirl the vial in the water bath until only a small ice crystal remains (approximately 1-2 minutes).",
						"Spray the outside of the vial with 70% ethanol and transfer it to the biosafety cabinet.",
						"Using a 5 mL serological pipette, slowly transfer the cell suspension to a 15 mL centrifuge tube.",
						"Add pre-warmed complete culture medium dropwise to the cells, starting with 1 mL over the first minute while gently swirling the tube.",
						"Continue adding medium slowly, 1 mL at a time with gentle mixing, until reaching 5 mL total volume.",
						"Add the remaining medium to reach 10 mL total volume.",
						"Centrifuge the cell suspension at 300 × g for 5 minutes at room temperature.",
						"Carefully aspirate and discard the supernatant without disturbing the cell pellet.",
						"Gently resuspend the cell pellet in 5-10 mL of fresh pre-warmed complete culture medium.",
					),
					checklist("5.3", "Cell Counting and Viability Assessment",
						"Mix 10 μL of cell suspension with 10 μL of 0.4% trypan blue solution.",
						"Load 10 μL of the mixture onto a hemocytometer or use an automated cell counter according to the manufacturer's instructions.",
						"Count the number of viable (unstained) and non-viable (blue-stained) cells.",
						"Calculate the cell concentration and viability percentage.",
						"Record the cell count and viability in the laboratory notebook.",
					),
					checklist("5.4", "Post-Thaw Culture",
						"Adjust the cell concentration to the required density for your specific application (typically 0.5-1 × 10^6 cells/mL).",
						"Transfer the cells to an appropriate culture vessel.",
						"Incubate the cells at 37°C, 5% CO2 in a humidified incubator.",
						"Monitor cell recovery and proliferation after 24 hours.",
					),
				},
			},
			{
				Label: "6", Title: "QUALITY CONTROL", Heading: "6. QUALITY CONTROL",
				Paragraphs: []Paragraph{{Text: "Cell viability should be ≥ 70% post-thaw. If viability is consistently below this threshold, review and optimize the freezing and thawing procedures."}},
			},
			{
				Label: "7", Title: "REFERENCES", Heading: "7. REFERENCES",
				Paragraphs: bullets(
					"Current Good Manufacturing Practice (cGMP) guidelines",
					"Manufacturer's instructions for equipment and materials used",
					"Laboratory safety manual",
				),
			},
			{
				Label: "8", Title: "REVISION HISTORY", Heading: "8. REVISION HISTORY",
				Table: &Table{
					Header: []string{"Revision Number", "Effective Date", "Description of Changes", "Author"},
					Rows:   [][]string{{"1.0", effectiveDate, "Initial release", ""}},
				},
			},
		},
	}
}

func bullets(items ...string) []Paragraph {
	out := make([]Paragraph, len(items))
	for i, item := range items {
		out[i] = Paragraph{Text: item, Bullet: true}
	}
	return out
}

// checklist builds a numbered subsection whose steps carry bold "N.M.K"
// markers.
func checklist(label, title string, steps ...string) RenderedSection {
	sec := RenderedSection{
		Label:   label,
		Title:   title,
		Heading: label + " " + title,
	}
	for i, step := range steps {
		sec.Paragraphs = append(sec.Paragraphs, Paragraph{
			Text:   step,
			Marker: fmt.Sprintf("%s.%d", label, i+1),
		})
	}
	return sec
}

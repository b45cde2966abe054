// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"github.com/unidoc/unioffice/color"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/measurement"
	"github.com/unidoc/unioffice/schema/soo/wml"
)

const fontName = "Arial"

// writeDocx assembles the styled Word document: page header and footer, the
// centered title block, the metadata table, and the section body, then saves
// it to path.
func writeDocx(doc Document, title, docID, kindLabel, organization, date, path string) error {
	w := document.New()

	addPageHeader(w, organization, kindLabel)
	addPageFooter(w, date)
	addTitle(w, title)
	addInfoTable(w, docID, date)

	bulletDef := newBulletDefinition(w)

	for _, p := range doc.Preamble {
		addParagraph(w, p, bulletDef)
	}

	for _, sec := range doc.Sections {
		addHeading(w, sec.Heading, 1)
		addSectionBody(w, sec, bulletDef)

		for _, sub := range sec.Subsections {
			addHeading(w, sub.Heading, 2)
			addSectionBody(w, sub, bulletDef)
		}
	}

	return w.SaveToFile(path)
}

// addPageHeader puts the organization placeholder and the document kind
// label at the top of every page.
func addPageHeader(w *document.Document, organization, kindLabel string) {
	hdr := w.AddHeader()

	left := hdr.AddParagraph()
	run := left.AddRun()
	run.Properties().SetFontFamily(fontName)
	run.Properties().SetSize(12 * measurement.Point)
	run.Properties().SetBold(true)
	run.AddText(organization)

	right := hdr.AddParagraph()
	right.Properties().SetAlignment(wml.ST_JcRight)
	run = right.AddRun()
	run.Properties().SetFontFamily(fontName)
	run.Properties().SetSize(12 * measurement.Point)
	run.Properties().SetBold(true)
	run.AddText(kindLabel)

	w.BodySection().SetHeader(hdr, wml.ST_HdrFtrDefault)
}

// addPageFooter puts the page-number field, the generation date, and the
// confidentiality marker at the bottom of every page.
func addPageFooter(w *document.Document, date string) {
	ftr := w.AddFooter()

	pagePara := ftr.AddParagraph()
	pagePara.Properties().SetAlignment(wml.ST_JcCenter)
	run := pagePara.AddRun()
	run.Properties().SetFontFamily(fontName)
	run.Properties().SetSize(8 * measurement.Point)
	run.AddText("Page ")
	run.AddField(document.FieldCurrentPage)

	datePara := ftr.AddParagraph()
	datePara.Properties().SetAlignment(wml.ST_JcCenter)
	run = datePara.AddRun()
	run.Properties().SetFontFamily(fontName)
	run.Properties().SetSize(8 * measurement.Point)
	run.AddText("Generated on " + date + " | CONFIDENTIAL")

	w.BodySection().SetFooter(ftr, wml.ST_HdrFtrDefault)
}

func addTitle(w *document.Document, title string) {
	para := w.AddParagraph()
	para.Properties().SetAlignment(wml.ST_JcCenter)
	run := para.AddRun()
	run.Properties().SetFontFamily(fontName)
	run.Properties().SetSize(16 * measurement.Point)
	run.Properties().SetBold(true)
	run.AddText(title)
}

// addInfoTable renders the 4-row document information table.
func addInfoTable(w *document.Document, docID, date string) {
	table := w.AddTable()
	table.Properties().SetWidthPercent(100)
	table.Properties().Borders().SetAll(wml.ST_BorderSingle, color.Auto, 0.5*measurement.Point)

	rows := [][2]string{
		{"Document ID:", docID},
		{"Effective Date:", date},
		{"Revision Number:", "1.0"},
		{"Approval Status:", "Draft"},
	}
	for _, r := range rows {
		row := table.AddRow()
		for _, text := range r {
			cell := row.AddCell()
			run := cell.AddParagraph().AddRun()
			run.Properties().SetFontFamily(fontName)
			run.Properties().SetSize(10 * measurement.Point)
			run.AddText(text)
		}
	}

	// Space after the table.
	w.AddParagraph()
}

func addHeading(w *document.Document, heading string, level int) {
	para := w.AddParagraph()
	size := measurement.Distance(14 * measurement.Point)
	style := "Heading1"
	if level == 2 {
		size = measurement.Distance(12 * measurement.Point)
		style = "Heading2"
	}
	para.SetStyle(style)

	run := para.AddRun()
	run.Properties().SetFontFamily(fontName)
	run.Properties().SetSize(size)
	run.Properties().SetBold(true)
	run.AddText(heading)
}

func addSectionBody(w *document.Document, sec RenderedSection, bulletDef document.NumberingDefinition) {
	for _, p := range sec.Paragraphs {
		addParagraph(w, p, bulletDef)
	}
	if sec.Table != nil {
		addDataTable(w, sec.Table)
	}
}

func addParagraph(w *document.Document, p Paragraph, bulletDef document.NumberingDefinition) {
	para := w.AddParagraph()

	if p.Bullet {
		para.SetNumberingLevel(0)
		para.SetNumberingDefinition(bulletDef)
	}

	if p.Marker != "" {
		marker := para.AddRun()
		marker.Properties().SetFontFamily(fontName)
		marker.Properties().SetSize(11 * measurement.Point)
		marker.Properties().SetBold(true)
		marker.AddText(p.Marker + " ")
	}

	run := para.AddRun()
	run.Properties().SetFontFamily(fontName)
	run.Properties().SetSize(11 * measurement.Point)
	run.AddText(p.Text)
}

// addDataTable renders a header-plus-rows table with bold header cells.
func addDataTable(w *document.Document, t *Table) {
	table := w.AddTable()
	table.Properties().SetWidthPercent(100)
	table.Properties().Borders().SetAll(wml.ST_BorderSingle, color.Auto, 0.5*measurement.Point)

	header := table.AddRow()
	for _, h := range t.Header {
		run := header.AddCell().AddParagraph().AddRun()
		run.Properties().SetFontFamily(fontName)
		run.Properties().SetSize(10 * measurement.Point)
		run.Properties().SetBold(true)
		run.AddText(h)
	}

	for _, r := range t.Rows {
		row := table.AddRow()
		for _, text := range r {
			run := row.AddCell().AddParagraph().AddRun()
			run.Properties().SetFontFamily(fontName)
			run.Properties().SetSize(10 * measurement.Point)
			run.AddText(text)
		}
	}
}

// newBulletDefinition registers a single-level bullet numbering definition
// shared by all bulleted paragraphs in the document.
func newBulletDefinition(w *document.Document) document.NumberingDefinition {
	nd := w.Numbering.AddDefinition()
	lvl := nd.AddLevel()
	lvl.SetFormat(wml.ST_NumberFormatBullet)
	lvl.SetAlignment(wml.ST_JcLeft)
	lvl.SetText("•")
	return nd
}

// Package export writes persisted award records to spreadsheets for the
// display layer.
package export

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/awards-cli/internal/classify"
	"github.com/sells-group/awards-cli/internal/model"
)

// Sheet names.
const (
	AwardsSheet   = "Awards"
	SeveritySheet = "Severity"
	MissingSheet  = "Missing Fields"
)

// AwardHeader is the header row of the awards sheet.
func AwardHeader() []string {
	h := []string{
		"award_num", "year", "award", "award_points", "location", "date",
		"genus", "species", "clone", "cross", "exhibitor", "photographer", "photo",
		"description", "num_flowers", "num_buds", "num_inflorescences", "measurement_type",
	}
	for _, f := range model.MorphometricFields {
		h = append(h, strings.ToLower(string(f)))
	}
	return append(h,
		"source_url", "html_reference", "scraped_date", "rule_set",
		"severity", "missing_fields", "explanation", "corrections",
	)
}

// WriteXLSX writes records to path with a summary of issue severities. A nil
// summary is computed from records.
func WriteXLSX(path string, records []model.ClassifiedRecord, summary *classify.Summary) error {
	if summary == nil {
		summary = classify.NewSummary()
		for _, r := range records {
			summary.Add(r.Issues)
		}
	}

	f := xlsx.NewFile()
	if err := writeAwards(f, records); err != nil {
		return err
	}
	if err := writeSeverity(f, summary); err != nil {
		return err
	}
	if err := writeMissing(f, summary); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func writeAwards(f *xlsx.File, records []model.ClassifiedRecord) error {
	sheet, err := f.AddSheet(AwardsSheet)
	if err != nil {
		return eris.Wrap(err, "export: add awards sheet")
	}
	addStrings(sheet.AddRow(), AwardHeader())

	for _, cr := range records {
		r := cr.Record
		row := sheet.AddRow()
		row.AddCell().SetString(r.AwardNum)
		row.AddCell().SetInt(r.Year)
		addText(row, r.Award)
		addInt(row, r.AwardPoints)
		addText(row, r.Location)
		addText(row, r.Date)
		addText(row, r.Genus)
		addText(row, r.Species)
		addText(row, r.Clone)
		addText(row, r.Cross)
		addText(row, r.Exhibitor)
		addText(row, r.Photographer)
		addText(row, r.Photo)
		addText(row, r.Measurements.Description)
		addInt(row, r.Measurements.NumFlowers)
		addInt(row, r.Measurements.NumBuds)
		addInt(row, r.Measurements.NumInflorescences)
		row.AddCell().SetString(string(r.Measurements.Type))
		for _, m := range model.MorphometricFields {
			addFloat(row, r.Measurements.Get(m))
		}
		addText(row, r.SourceURL)
		row.AddCell().SetString(r.HTMLReference)
		scraped := ""
		if !r.ScrapedDate.IsZero() {
			scraped = r.ScrapedDate.UTC().Format(time.RFC3339)
		}
		row.AddCell().SetString(scraped)
		row.AddCell().SetString(r.RuleSet)
		row.AddCell().SetString(string(cr.Issues.Severity))
		row.AddCell().SetString(strings.Join(cr.Issues.Missing, ", "))
		row.AddCell().SetString(cr.Issues.Explanation)

		corrections, err := json.Marshal(r.Corrections)
		if err != nil {
			return eris.Wrapf(err, "export: encode corrections %s", r.AwardNum)
		}
		row.AddCell().SetString(string(corrections))
	}
	return nil
}

func writeSeverity(f *xlsx.File, s *classify.Summary) error {
	sheet, err := f.AddSheet(SeveritySheet)
	if err != nil {
		return eris.Wrap(err, "export: add severity sheet")
	}
	addStrings(sheet.AddRow(), []string{"severity", "count"})
	for _, sev := range model.Severities {
		row := sheet.AddRow()
		row.AddCell().SetString(string(sev))
		row.AddCell().SetInt(s.BySeverity[sev])
	}
	row := sheet.AddRow()
	row.AddCell().SetString("total")
	row.AddCell().SetInt(s.Total)
	return nil
}

func writeMissing(f *xlsx.File, s *classify.Summary) error {
	sheet, err := f.AddSheet(MissingSheet)
	if err != nil {
		return eris.Wrap(err, "export: add missing fields sheet")
	}
	addStrings(sheet.AddRow(), []string{"field", "count"})
	for _, fc := range s.TopFields(0) {
		row := sheet.AddRow()
		row.AddCell().SetString(fc.Field)
		row.AddCell().SetInt(fc.Count)
	}
	return nil
}

func addStrings(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// Absent values are empty cells; not-applicable values render as N/A.
func addText(row *xlsx.Row, v model.Text) {
	row.AddCell().SetString(v.Text())
}

func addInt(row *xlsx.Row, v model.Int) {
	cell := row.AddCell()
	if n, ok := v.Get(); ok {
		cell.SetInt(n)
		return
	}
	cell.SetString(v.Text())
}

func addFloat(row *xlsx.Row, v model.Float) {
	cell := row.AddCell()
	if x, ok := v.Get(); ok {
		cell.SetFloat(x)
		return
	}
	cell.SetString(v.Text())
}

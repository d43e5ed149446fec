package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/db"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

const awardsTable = "awards"

// measurementColumns maps each morphometric field to its column.
var measurementColumns = func() []string {
	out := make([]string, len(model.MorphometricFields))
	for i, f := range model.MorphometricFields {
		out[i] = strings.ToLower(string(f))
	}
	return out
}()

// awardColumns is the column order shared by inserts, updates and scans.
var awardColumns = append(append([]string{
	"award_num", "year", "award", "award_points", "location", "award_date",
	"genus", "species", "clone", "cross_name", "exhibitor", "photographer", "photo",
	"description", "num_flowers", "num_buds", "num_inflorescences", "measurement_type",
}, measurementColumns...),
	"source_url", "html_reference", "scraped_date", "rule_set",
	"corrections", "issue_severity", "issue_explanation", "missing_fields", "created_at", "updated_at",
)

var insertAwardConfig = db.InsertConfig{
	Table:        awardsTable,
	Columns:      awardColumns,
	ConflictKeys: []string{"award_num"},
}

// placeholder renders the n-th (1-based) bind parameter.
type placeholder func(n int) string

func dollar(n int) string { return fmt.Sprintf("$%d", n) }
func question(int) string { return "?" }

func selectAwardsSQL() string {
	return "SELECT " + strings.Join(awardColumns, ", ") + " FROM " + awardsTable
}

// updateAwardSQL rewrites every column except the key and created_at.
func updateAwardSQL(ph placeholder) string {
	var sets []string
	n := 0
	for _, c := range awardColumns {
		if c == "award_num" || c == "created_at" {
			continue
		}
		n++
		sets = append(sets, fmt.Sprintf("%s = %s", c, ph(n)))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE award_num = %s", awardsTable, strings.Join(sets, ", "), ph(n+1))
}

// updateArgs reorders insert args for updateAwardSQL.
func updateArgs(args []any) []any {
	out := make([]any, 0, len(args))
	var key any
	for i, c := range awardColumns {
		switch c {
		case "award_num":
			key = args[i]
		case "created_at":
		default:
			out = append(out, args[i])
		}
	}
	return append(out, key)
}

func listAwardsSQL(f AwardFilter, ph placeholder) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, ph(len(args))))
	}
	if f.Year != 0 {
		add("year = %s", f.Year)
	}
	if f.Award != "" {
		add("award = %s", strings.ToUpper(f.Award))
	}
	if f.Genus != "" {
		add("lower(genus) = %s", strings.ToLower(f.Genus))
	}
	if f.Location != "" {
		add("lower(location) LIKE %s", "%"+strings.ToLower(f.Location)+"%")
	}
	if f.Exhibitor != "" {
		add("lower(exhibitor) LIKE %s", "%"+strings.ToLower(f.Exhibitor)+"%")
	}
	if f.MeasurementType != "" {
		add("measurement_type = %s", string(f.MeasurementType))
	}
	if f.Severity != "" {
		add("issue_severity = %s", string(f.Severity))
	}

	query := selectAwardsSQL()
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY year, award_num"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT " + ph(len(args))
		if f.Offset > 0 {
			args = append(args, f.Offset)
			query += " OFFSET " + ph(len(args))
		}
	}
	return query, args
}

func severitySummarySQL(year int, ph placeholder) (string, []any) {
	query := "SELECT issue_severity, COUNT(*) FROM " + awardsTable
	var args []any
	if year != 0 {
		query += " WHERE year = " + ph(1)
		args = append(args, year)
	}
	return query + " GROUP BY issue_severity", args
}

// Values are stored as NULL when absent. Text that is not applicable is
// stored as "N/A"; numbers that are not applicable are stored as NULL.

func textArg(v model.Text) any {
	switch v.State() {
	case model.StatePresent:
		return v.OrZero()
	case model.StateNotApplicable:
		return model.NotApplicableText
	}
	return nil
}

func intArg(v model.Int) any {
	if x, ok := v.Get(); ok {
		return int64(x)
	}
	return nil
}

func floatArg(v model.Float) any {
	if x, ok := v.Get(); ok {
		return x
	}
	return nil
}

func textFrom(p *string) model.Text {
	switch {
	case p == nil:
		return model.Absent[string]()
	case *p == model.NotApplicableText:
		return model.NotApplicable[string]()
	}
	return model.Present(*p)
}

func intFrom(p *int64) model.Int {
	if p == nil {
		return model.Absent[int]()
	}
	return model.Present(int(*p))
}

func floatFrom(p *float64) model.Float {
	if p == nil {
		return model.Absent[float64]()
	}
	return model.Present(*p)
}

// awardArgs encodes cr in awardColumns order.
func awardArgs(cr model.ClassifiedRecord, now time.Time) ([]any, error) {
	r := cr.Record
	corrections := r.Corrections
	if corrections == nil {
		corrections = []model.Correction{}
	}
	correctionsJSON, err := json.Marshal(corrections)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal corrections")
	}
	missing := cr.Issues.Missing
	if missing == nil {
		missing = []string{}
	}
	missingJSON, err := json.Marshal(missing)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal missing fields")
	}

	var scraped any
	if !r.ScrapedDate.IsZero() {
		scraped = r.ScrapedDate.UTC()
	}
	var severity any
	if cr.Issues.Severity != "" {
		severity = string(cr.Issues.Severity)
	}

	args := []any{
		r.AwardNum, int64(r.Year), textArg(r.Award), intArg(r.AwardPoints), textArg(r.Location), textArg(r.Date),
		textArg(r.Genus), textArg(r.Species), textArg(r.Clone), textArg(r.Cross), textArg(r.Exhibitor),
		textArg(r.Photographer), textArg(r.Photo), textArg(r.Measurements.Description),
		intArg(r.Measurements.NumFlowers), intArg(r.Measurements.NumBuds), intArg(r.Measurements.NumInflorescences),
		string(r.Measurements.Type),
	}
	for _, f := range model.MorphometricFields {
		args = append(args, floatArg(r.Measurements.Get(f)))
	}
	return append(args,
		textArg(r.SourceURL), r.HTMLReference, scraped, r.RuleSet,
		string(correctionsJSON), severity, cr.Issues.Explanation, string(missingJSON), now, now,
	), nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanAward decodes one row selected with awardColumns.
func scanAward(row scanner) (*model.ClassifiedRecord, error) {
	var (
		r                                                      model.AwardRecord
		year                                                   int64
		award, location, date, genus, species, clone, cross    *string
		exhibitor, photographer, photo, description, sourceURL *string
		points, flowers, buds, inflorescences                  *int64
		mtype, htmlRef, ruleSet, severity, explanation         *string
		scraped                                                *time.Time
		correctionsJSON, missingJSON                           *string
		createdAt, updatedAt                                   time.Time
		dims                                                   = make([]*float64, len(model.MorphometricFields))
	)

	dest := []any{
		&r.AwardNum, &year, &award, &points, &location, &date,
		&genus, &species, &clone, &cross, &exhibitor, &photographer, &photo,
		&description, &flowers, &buds, &inflorescences, &mtype,
	}
	for i := range dims {
		dest = append(dest, &dims[i])
	}
	dest = append(dest,
		&sourceURL, &htmlRef, &scraped, &ruleSet,
		&correctionsJSON, &severity, &explanation, &missingJSON, &createdAt, &updatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	r.Year = int(year)
	r.Award = textFrom(award)
	r.AwardPoints = intFrom(points)
	r.Location = textFrom(location)
	r.Date = textFrom(date)
	r.Genus = textFrom(genus)
	r.Species = textFrom(species)
	r.Clone = textFrom(clone)
	r.Cross = textFrom(cross)
	r.Exhibitor = textFrom(exhibitor)
	r.Photographer = textFrom(photographer)
	r.Photo = textFrom(photo)
	r.SourceURL = textFrom(sourceURL)
	r.Measurements.Description = textFrom(description)
	r.Measurements.NumFlowers = intFrom(flowers)
	r.Measurements.NumBuds = intFrom(buds)
	r.Measurements.NumInflorescences = intFrom(inflorescences)
	r.Measurements.Dimensions = make(map[model.Field]model.Float)
	for i, f := range model.MorphometricFields {
		if v := floatFrom(dims[i]); v.IsPresent() {
			r.Measurements.Dimensions[f] = v
		}
	}
	if mtype != nil {
		r.Measurements.Type = model.MeasurementType(*mtype)
	}
	if htmlRef != nil {
		r.HTMLReference = *htmlRef
	}
	if ruleSet != nil {
		r.RuleSet = *ruleSet
	}
	if scraped != nil {
		r.ScrapedDate = scraped.UTC()
	}

	r.Corrections = []model.Correction{}
	if correctionsJSON != nil && *correctionsJSON != "" {
		if err := json.Unmarshal([]byte(*correctionsJSON), &r.Corrections); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal corrections for %s", r.AwardNum)
		}
	}

	cr := &model.ClassifiedRecord{Record: r, Issues: model.IssueReport{Missing: []string{}}}
	if severity != nil {
		cr.Issues.Severity = model.Severity(*severity)
	}
	if explanation != nil {
		cr.Issues.Explanation = *explanation
	}
	if missingJSON != nil && *missingJSON != "" {
		if err := json.Unmarshal([]byte(*missingJSON), &cr.Issues.Missing); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal missing fields for %s", r.AwardNum)
		}
	}
	return cr, nil
}

var failureColumns = []string{
	"id", "stage", "source_id", "year", "url", "kind", "error", "error_type",
	"attempts", "created_at", "last_failed_at",
}

func recordFailureSQL(ph placeholder) string {
	phs := make([]string, len(failureColumns))
	for i := range failureColumns {
		phs[i] = ph(i + 1)
	}
	return fmt.Sprintf(`INSERT INTO failed_documents (%s) VALUES (%s)
ON CONFLICT (stage, source_id) DO UPDATE SET
	year = excluded.year, url = excluded.url, kind = excluded.kind,
	error = excluded.error, error_type = excluded.error_type,
	attempts = failed_documents.attempts + excluded.attempts,
	last_failed_at = excluded.last_failed_at`,
		strings.Join(failureColumns, ", "), strings.Join(phs, ", "))
}

func listFailuresSQL(f resilience.DLQFilter, ph placeholder) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, ph(len(args))))
	}
	if f.Stage != "" {
		add("stage = %s", f.Stage)
	}
	if f.Year != 0 {
		add("year = %s", f.Year)
	}
	if f.ErrorType != "" {
		add("error_type = %s", f.ErrorType)
	}
	query := "SELECT " + strings.Join(failureColumns, ", ") + " FROM failed_documents"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_failed_at DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	return query + " LIMIT " + ph(len(args)), args
}

// scanFailure decodes one row selected with failureColumns.
func scanFailure(row scanner) (resilience.DLQEntry, error) {
	var (
		e    resilience.DLQEntry
		year int64
		url  *string
		kind string
	)
	err := row.Scan(&e.ID, &e.Stage, &e.SourceID, &year, &url, &kind, &e.Error, &e.ErrorType,
		&e.Attempts, &e.CreatedAt, &e.LastFailedAt)
	if err != nil {
		return e, err
	}
	e.Year = int(year)
	e.Kind = model.ErrorKind(kind)
	if url != nil {
		e.URL = *url
	}
	return e, nil
}

func failureArgs(e resilience.DLQEntry) []any {
	var url any
	if e.URL != "" {
		url = e.URL
	}
	return []any{
		e.ID, e.Stage, e.SourceID, int64(e.Year), url, string(e.Kind), e.Error, e.ErrorType,
		e.Attempts, e.CreatedAt.UTC(), e.LastFailedAt.UTC(),
	}
}

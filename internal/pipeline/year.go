package pipeline

import (
	"context"
	"mime"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/archive"
	"github.com/sells-group/awards-cli/internal/classify"
	"github.com/sells-group/awards-cli/internal/extract"
	"github.com/sells-group/awards-cli/internal/loader"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
	"github.com/sells-group/awards-cli/internal/segment"
)

// loadIndex extracts the index listing entries of year, keyed by award
// number. The first entry for an award number wins across pages.
func (p *Pipeline) loadIndex(ctx context.Context, year int, yr *YearReport) map[string]model.IndexRecord {
	out := make(map[string]model.IndexRecord)
	pages, err := p.archive.ListIndexPages(year)
	if err != nil {
		p.record(ctx, yr, resilience.StageIndex, year, "", "", err)
		return out
	}
	for _, path := range pages {
		body, err := p.archive.ReadIndexPage(path)
		if err != nil {
			p.record(ctx, yr, resilience.StageIndex, year, path, "", err)
			continue
		}
		doc, err := segment.Parse(path, body, "")
		if err != nil {
			p.record(ctx, yr, resilience.StageIndex, year, path, "", err)
			continue
		}
		for _, entry := range extract.ExtractIndex(doc) {
			entry.SourceID = path
			if _, ok := out[entry.AwardNum]; !ok {
				out[entry.AwardNum] = entry
			}
		}
	}
	return out
}

// runYear processes one year's documents strictly in order.
func (p *Pipeline) runYear(ctx context.Context, year int) *YearReport {
	yr := newYearReport(year)
	log := zap.L().With(zap.Int("year", year))

	index := p.loadIndex(ctx, year, yr)
	refs, err := p.archive.ListDocuments(year)
	if err != nil {
		p.record(ctx, yr, resilience.StageParse, year, "", "", err)
		return yr
	}
	yr.Found = len(refs)
	yr.IndexEntries = len(index)

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		p.processDocument(ctx, ref, index, yr)
	}

	log.Info("pipeline: year complete",
		zap.Int("found", yr.Found),
		zap.Int("inserted", yr.Inserted),
		zap.Int("skipped", yr.Skipped),
		zap.Int("failed", yr.Failed),
		zap.Int("conflicts", len(yr.Conflicts)),
	)
	return yr
}

// processDocument takes one document from bytes to a loaded record. Every
// failure is recorded on yr and never propagates.
func (p *Pipeline) processDocument(ctx context.Context, ref archive.DocumentRef, index map[string]model.IndexRecord, yr *YearReport) {
	body, meta, err := p.archive.ReadDocument(ref)
	if err != nil {
		p.fail(ctx, yr, resilience.StageParse, ref.Year, ref.ID, "", err)
		return
	}

	doc, err := segment.Parse(ref.ID, body, charsetOf(meta.ContentType))
	if err != nil {
		p.fail(ctx, yr, resilience.StageParse, ref.Year, ref.ID, "", err)
		return
	}

	raw, err := p.extractor.Extract(doc, extract.DocumentMeta{
		Year:          ref.Year,
		SourceURL:     meta.URL,
		ScrapedDate:   meta.FetchedAt,
		HTMLReference: ref.Path,
	})
	if err != nil {
		p.fail(ctx, yr, resilience.StageParse, ref.Year, ref.ID, "", err)
		return
	}
	yr.addGaps(extract.Gaps(raw))

	awardNum := raw.Fields[model.FieldAwardNum]
	var corrections []model.Correction
	if entry, ok := index[awardNum]; ok && awardNum != "" {
		merged, res := p.reconciler.Reconcile(raw, entry)
		raw = merged
		corrections = res.Corrections
		yr.Conflicts = append(yr.Conflicts, res.Conflicts...)
	}

	rec := p.norm.FromRaw(raw)
	for _, c := range corrections {
		rec.AppendCorrection(c)
	}
	cr := classify.Record(rec)
	yr.Severity.Add(cr.Issues)

	res := p.loader.LoadOne(ctx, cr)
	switch res.Outcome {
	case loader.OutcomeInserted:
		yr.Inserted++
	case loader.OutcomeSkipped:
		yr.Skipped++
		if p.archive.HasRecord(ref.Year, rec.AwardNum) {
			return
		}
	default:
		p.fail(ctx, yr, resilience.StageLoad, ref.Year, ref.ID, rec.AwardNum, res.Err)
		return
	}
	if err := p.syncRecord(ctx, rec.AwardNum); err != nil {
		p.record(ctx, yr, resilience.StageLoad, ref.Year, "", rec.AwardNum, err)
	}
}

// syncRecord rewrites the intermediate document of awardNum from the store,
// so it always carries the persisted fields and correction history.
func (p *Pipeline) syncRecord(ctx context.Context, awardNum string) error {
	cr, err := p.store.GetAward(ctx, awardNum)
	if err != nil {
		return eris.Wrapf(err, "pipeline: sync record %s", awardNum)
	}
	_, err = p.archive.WriteRecord(*cr)
	return err
}

// fail records a failed document on the year report and dead-letters it.
func (p *Pipeline) fail(ctx context.Context, yr *YearReport, stage string, year int, sourceID, awardNum string, err error) {
	yr.Failed++
	p.record(ctx, yr, stage, year, sourceID, awardNum, err)
}

// record adds err to the year report. Errors tied to a source are also
// dead-lettered for a manual retry.
func (p *Pipeline) record(ctx context.Context, yr *YearReport, stage string, year int, sourceID, awardNum string, err error) {
	yr.Errors = append(yr.Errors, batchError(stage, year, sourceID, awardNum, err))
	zap.L().Error("pipeline: stage failed",
		zap.String("stage", stage),
		zap.Int("year", year),
		zap.String("document", sourceID),
		zap.String("award_num", awardNum),
		zap.Error(err),
	)

	if sourceID == "" {
		return
	}
	entry := resilience.NewDLQEntry(stage, sourceID, year, err)
	if rerr := p.store.RecordFailure(ctx, entry); rerr != nil {
		zap.L().Warn("pipeline: record failure", zap.String("document", sourceID), zap.Error(rerr))
	}
}

func sortedKeys(index map[string]model.IndexRecord) []string {
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// charsetOf returns the charset parameter of a Content-Type value.
func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

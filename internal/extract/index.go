package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/segment"
)

var (
	indexNumRe  = regexp.MustCompile(`^\d{6,9}$`)
	indexCellRe = regexp.MustCompile(`^(` + awardCodeAlternation + `)(?:/AOS)?(?:\s+(\d{1,3}))?$`)
	indexLineRe = regexp.MustCompile(`^(\d{6,9})\s+(` + awardCodeAlternation + `)(?:/AOS)?(?:\s+(\d{1,3}))?\s+(.+?)(?:\s+[-–—]\s+(.+))?$`)
)

// ExtractIndex reads the entries of an index listing page. Entries inherit the
// date and location of the nearest preceding event heading. Tables are read
// as [number | award [points] | plant | exhibitor]; text lines as
// "<number> <award> [points] <plant> - <exhibitor>". The first entry for an
// award number wins.
func ExtractIndex(doc *segment.Document) []model.IndexRecord {
	var (
		out            []model.IndexRecord
		seen           = make(map[string]bool)
		date, location string
	)

	emit := func(num string, fields map[model.Field]string) {
		if seen[num] {
			return
		}
		seen[num] = true
		if date != "" {
			fields[model.FieldDate] = date
		}
		if location != "" {
			fields[model.FieldLocation] = location
		}
		out = append(out, model.IndexRecord{AwardNum: num, SourceID: doc.ID, Fields: fields})
	}

	for _, seg := range doc.Segments {
		if d, l, ok := eventHeading(seg.Text); ok {
			date, location = d, l
			continue
		}

		if seg.Kind == segment.KindRow && len(seg.Cells) >= 2 {
			num := strings.TrimSpace(seg.Cells[0])
			if !indexNumRe.MatchString(num) {
				continue
			}
			fields := make(map[model.Field]string)
			if m := indexCellRe.FindStringSubmatch(strings.TrimSpace(seg.Cells[1])); m != nil {
				fields[model.FieldAward] = m[1]
				if m[2] != "" {
					fields[model.FieldAwardPoints] = m[2]
				}
			}
			if len(seg.Cells) >= 4 {
				if ex := strings.TrimSpace(seg.Cells[len(seg.Cells)-1]); ex != "" {
					fields[model.FieldExhibitor] = ex
				}
			}
			emit(num, fields)
			continue
		}

		if m := indexLineRe.FindStringSubmatch(seg.Text); m != nil {
			fields := map[model.Field]string{model.FieldAward: m[2]}
			if m[3] != "" {
				fields[model.FieldAwardPoints] = m[3]
			}
			if ex := strings.TrimSpace(m[5]); ex != "" {
				fields[model.FieldExhibitor] = ex
			}
			emit(m[1], fields)
		}
	}
	return out
}

func eventHeading(text string) (date, location string, ok bool) {
	if m := eventHeadingRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
	}
	if m := legacyEventRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[1]), true
	}
	return "", "", false
}

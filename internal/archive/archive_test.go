package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/model"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, New(dir).Validate())

	assert.Error(t, New("").Validate())
	assert.Error(t, New(filepath.Join(dir, "missing")).Validate())

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	err := New(file).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestWriteAndReadDocument(t *testing.T) {
	a := New(t.TempDir())
	fetched := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	ref, err := a.WriteDocument(2025, "20251234", []byte("<p>AM 85</p>"), DocumentMeta{
		URL:       "https://example.org/awards/20251234",
		FetchedAt: fetched,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025/documents/20251234.html", ref.Path)

	refs, err := a.ListDocuments(2025)
	require.NoError(t, err)
	require.Len(t, refs, 1, "meta sidecar is not listed")
	assert.Equal(t, ref, refs[0])

	body, meta, err := a.ReadDocument(refs[0])
	require.NoError(t, err)
	assert.Equal(t, "<p>AM 85</p>", string(body))
	assert.Equal(t, "https://example.org/awards/20251234", meta.URL)
	assert.True(t, meta.FetchedAt.Equal(fetched))
}

func TestReadDocument_NoSidecar(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "2014", "documents")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("legacy"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.htm"), []byte("older"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("skip"), 0o644))

	a := New(root)
	refs, err := a.ListDocuments(2014)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "a", refs[0].ID)
	assert.Equal(t, "b", refs[1].ID)

	_, meta, err := a.ReadDocument(refs[1])
	require.NoError(t, err)
	assert.Equal(t, "b", meta.ID)
	assert.Empty(t, meta.URL)
	assert.False(t, meta.FetchedAt.IsZero())
}

func TestListDocuments_MissingYear(t *testing.T) {
	refs, err := New(t.TempDir()).ListDocuments(1999)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestIndexPages(t *testing.T) {
	a := New(t.TempDir())
	p2, err := a.WriteIndexPage(2025, "page-2", []byte("two"))
	require.NoError(t, err)
	p1, err := a.WriteIndexPage(2025, "page-1.html", []byte("one"))
	require.NoError(t, err)

	pages, err := a.ListIndexPages(2025)
	require.NoError(t, err)
	assert.Equal(t, []string{p1, p2}, pages)

	body, err := a.ReadIndexPage(p2)
	require.NoError(t, err)
	assert.Equal(t, "two", string(body))
}

func TestYears(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"2025", "2014", "misc"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	years, err := New(root).Years()
	require.NoError(t, err)
	assert.Equal(t, []int{2014, 2025}, years)
}

func TestWriteAndReadRecord(t *testing.T) {
	a := New(t.TempDir())
	cr := model.ClassifiedRecord{
		Record: model.AwardRecord{
			AwardNum:    "20251234",
			Year:        2025,
			Award:       model.Present("AM"),
			AwardPoints: model.Present(85),
			Cross:       model.NotApplicable[string](),
			Measurements: model.Measurements{
				Type:       model.MeasurementLipLateralSepal,
				Dimensions: map[model.Field]model.Float{model.FieldNS: model.Present(9.5)},
			},
			Corrections: []model.Correction{},
		},
		Issues: model.IssueReport{Severity: model.SeverityCritical, Missing: []string{"date"}, Explanation: "missing critical: date"},
	}

	assert.False(t, a.HasRecord(2025, "20251234"))
	path, err := a.WriteRecord(cr)
	require.NoError(t, err)
	assert.Equal(t, "2025/records/20251234.json", path)
	assert.True(t, a.HasRecord(2025, "20251234"))
	assert.False(t, a.HasRecord(2024, "20251234"))

	got, err := a.ReadRecord(2025, "20251234")
	require.NoError(t, err)
	assert.Equal(t, cr.Record.Award, got.Record.Award)
	assert.Equal(t, cr.Record.AwardPoints, got.Record.AwardPoints)
	assert.True(t, got.Record.Cross.IsNotApplicable())
	assert.True(t, got.Record.Genus.IsAbsent())
	assert.Equal(t, cr.Record.Measurements.Dimensions, got.Record.Measurements.Dimensions)
	assert.Equal(t, cr.Issues, got.Issues)
}

func TestInvalidNames(t *testing.T) {
	a := New(t.TempDir())
	_, err := a.WriteDocument(2025, "../escape", []byte("x"), DocumentMeta{})
	assert.Error(t, err)
	_, err = a.WriteRecord(model.ClassifiedRecord{})
	assert.Error(t, err)
	assert.False(t, a.HasRecord(2025, "../escape"))
}

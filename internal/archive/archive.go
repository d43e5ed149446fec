// Package archive reads and writes the on-disk source archive: fetched award
// documents, index listings and intermediate per-record JSON.
//
// Layout under the root:
//
//	<year>/documents/<id>.html       raw document
//	<year>/documents/<id>.meta.json  fetch metadata
//	<year>/index/<name>.html         index listing pages
//	<year>/records/<awardNum>.json   intermediate classified record
package archive

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/model"
)

const (
	documentsDir = "documents"
	indexDir     = "index"
	recordsDir   = "records"
	metaSuffix   = ".meta.json"
)

var documentExts = map[string]bool{".html": true, ".htm": true, ".txt": true}

// DocumentMeta is the sidecar written next to each fetched document.
type DocumentMeta struct {
	ID          string    `json:"id"`
	URL         string    `json:"url,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
	ContentType string    `json:"content_type,omitempty"`
}

// DocumentRef locates one archived document.
type DocumentRef struct {
	ID   string
	Year int
	// Path is relative to the archive root.
	Path string
}

// Archive is a directory-backed document archive.
type Archive struct {
	root string
}

// New returns an Archive rooted at root.
func New(root string) *Archive {
	return &Archive{root: root}
}

// Root returns the archive root directory.
func (a *Archive) Root() string { return a.root }

// Validate checks that the root exists and is a readable directory.
func (a *Archive) Validate() error {
	if a.root == "" {
		return eris.New("archive: root is not configured")
	}
	info, err := os.Stat(a.root)
	if err != nil {
		return eris.Wrapf(err, "archive: stat root %s", a.root)
	}
	if !info.IsDir() {
		return eris.Errorf("archive: root %s is not a directory", a.root)
	}
	if _, err := os.ReadDir(a.root); err != nil {
		return eris.Wrapf(err, "archive: read root %s", a.root)
	}
	return nil
}

// Years lists the year directories present under the root, ascending.
func (a *Archive) Years() ([]int, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, eris.Wrapf(err, "archive: read root %s", a.root)
	}
	var years []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if y, err := strconv.Atoi(e.Name()); err == nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

func (a *Archive) yearDir(year int, sub string) string {
	return filepath.Join(a.root, strconv.Itoa(year), sub)
}

// ListDocuments returns the documents archived for year, sorted by ID. A
// year with no documents directory has no documents.
func (a *Archive) ListDocuments(year int) ([]DocumentRef, error) {
	dir := a.yearDir(year, documentsDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "archive: list documents %d", year)
	}

	var refs []DocumentRef
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, metaSuffix) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !documentExts[ext] {
			continue
		}
		refs = append(refs, DocumentRef{
			ID:   strings.TrimSuffix(name, filepath.Ext(name)),
			Year: year,
			Path: filepath.ToSlash(filepath.Join(strconv.Itoa(year), documentsDir, name)),
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// ReadDocument returns a document's bytes and metadata. Documents without a
// sidecar get metadata derived from the file itself.
func (a *Archive) ReadDocument(ref DocumentRef) ([]byte, DocumentMeta, error) {
	path := filepath.Join(a.root, filepath.FromSlash(ref.Path))
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, DocumentMeta{}, eris.Wrapf(err, "archive: read document %s", ref.Path)
	}

	meta := DocumentMeta{ID: ref.ID}
	raw, err := os.ReadFile(a.metaPath(ref.Year, ref.ID))
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, DocumentMeta{}, eris.Wrapf(err, "archive: decode meta for %s", ref.ID)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, DocumentMeta{}, eris.Wrapf(err, "archive: read meta for %s", ref.ID)
	}

	if meta.FetchedAt.IsZero() {
		if info, err := os.Stat(path); err == nil {
			meta.FetchedAt = info.ModTime().UTC()
		}
	}
	return body, meta, nil
}

func (a *Archive) metaPath(year int, id string) string {
	return filepath.Join(a.yearDir(year, documentsDir), id+metaSuffix)
}

// WriteDocument stores a fetched document and its metadata sidecar.
func (a *Archive) WriteDocument(year int, id string, body []byte, meta DocumentMeta) (DocumentRef, error) {
	if err := validName(id); err != nil {
		return DocumentRef{}, err
	}
	name := id + ".html"
	path := filepath.Join(a.yearDir(year, documentsDir), name)
	if err := writeFile(path, body); err != nil {
		return DocumentRef{}, eris.Wrapf(err, "archive: write document %s", id)
	}

	meta.ID = id
	if meta.FetchedAt.IsZero() {
		meta.FetchedAt = time.Now().UTC()
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return DocumentRef{}, eris.Wrap(err, "archive: encode meta")
	}
	if err := writeFile(a.metaPath(year, id), raw); err != nil {
		return DocumentRef{}, eris.Wrapf(err, "archive: write meta %s", id)
	}
	return DocumentRef{
		ID:   id,
		Year: year,
		Path: filepath.ToSlash(filepath.Join(strconv.Itoa(year), documentsDir, name)),
	}, nil
}

// ListIndexPages returns the root-relative paths of a year's index listings.
func (a *Archive) ListIndexPages(year int) ([]string, error) {
	dir := a.yearDir(year, indexDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "archive: list index pages %d", year)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !documentExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, filepath.ToSlash(filepath.Join(strconv.Itoa(year), indexDir, e.Name())))
	}
	sort.Strings(out)
	return out, nil
}

// ReadIndexPage reads an index listing by its root-relative path.
func (a *Archive) ReadIndexPage(path string) ([]byte, error) {
	body, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, eris.Wrapf(err, "archive: read index page %s", path)
	}
	return body, nil
}

// WriteIndexPage stores an index listing page for year.
func (a *Archive) WriteIndexPage(year int, name string, body []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if filepath.Ext(name) == "" {
		name += ".html"
	}
	if err := writeFile(filepath.Join(a.yearDir(year, indexDir), name), body); err != nil {
		return "", eris.Wrapf(err, "archive: write index page %s", name)
	}
	return filepath.ToSlash(filepath.Join(strconv.Itoa(year), indexDir, name)), nil
}

// WriteRecord stores the intermediate form of a classified record and
// returns its root-relative path.
func (a *Archive) WriteRecord(cr model.ClassifiedRecord) (string, error) {
	num := cr.Record.AwardNum
	if err := validName(num); err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(cr, "", "  ")
	if err != nil {
		return "", eris.Wrapf(err, "archive: encode record %s", num)
	}
	name := num + ".json"
	if err := writeFile(filepath.Join(a.yearDir(cr.Record.Year, recordsDir), name), raw); err != nil {
		return "", eris.Wrapf(err, "archive: write record %s", num)
	}
	return filepath.ToSlash(filepath.Join(strconv.Itoa(cr.Record.Year), recordsDir, name)), nil
}

// HasRecord reports whether an intermediate record exists for awardNum.
func (a *Archive) HasRecord(year int, awardNum string) bool {
	if validName(awardNum) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(a.yearDir(year, recordsDir), awardNum+".json"))
	return err == nil && info.Mode().IsRegular()
}

// ReadRecord loads an intermediate record written by WriteRecord.
func (a *Archive) ReadRecord(year int, awardNum string) (*model.ClassifiedRecord, error) {
	raw, err := os.ReadFile(filepath.Join(a.yearDir(year, recordsDir), awardNum+".json"))
	if err != nil {
		return nil, eris.Wrapf(err, "archive: read record %s", awardNum)
	}
	var cr model.ClassifiedRecord
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, eris.Wrapf(err, "archive: decode record %s", awardNum)
	}
	return &cr, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return eris.Errorf("archive: invalid name %q", name)
	}
	return nil
}

// writeFile writes data atomically through a temp file in the same directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmp.Name()) //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return err
	}
	return os.Rename(tmp.Name(), path)
}

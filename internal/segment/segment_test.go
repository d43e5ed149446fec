package segment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/model"
)

const detailHTML = `<!DOCTYPE html>
<html><head><title>Award 20251234</title><script>var x = 1;</script></head>
<body>
<h2>January 7, 2025 - San Francisco</h2>
<div class="award">
  <p>Paphiopedilum rothschildianum 'Big Boy'<br>(Paph. Rex x Paph. Lady)</p>
  <p>AM <b>85</b></p>
  <p>Exhibited by: Jane&nbsp;Doe<br/>Photographer: John Smith</p>
  <img src="/images/20251234.jpg">
</div>
<table>
  <tr><th>NS</th><td>12.5</td></tr>
  <tr><td></td><td></td></tr>
</table>
</body></html>`

func TestParse_HTMLOrder(t *testing.T) {
	doc, err := Parse("20251234", []byte(detailHTML), "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"January 7, 2025 - San Francisco",
		"Paphiopedilum rothschildianum 'Big Boy'",
		"(Paph. Rex x Paph. Lady)",
		"AM 85",
		"Exhibited by: Jane Doe",
		"Photographer: John Smith",
		"NS 12.5",
	}, texts(doc))

	assert.Equal(t, KindHeading, doc.Segments[0].Kind)
	assert.Equal(t, KindRow, doc.Segments[6].Kind)
	assert.Equal(t, []string{"NS", "12.5"}, doc.Segments[6].Cells)
	assert.Equal(t, []string{"/images/20251234.jpg"}, doc.Images)
}

func TestParse_PlainText(t *testing.T) {
	doc, err := Parse("doc-1", []byte("January 7, 2025 - San Francisco\n\n   AM 85  \nExhibited by: Jane Doe\n"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"January 7, 2025 - San Francisco", "AM 85", "Exhibited by: Jane Doe"}, texts(doc))
	for _, s := range doc.Segments {
		assert.Equal(t, KindText, s.Kind)
	}
}

func TestParse_Windows1252(t *testing.T) {
	// 0xE9 is "é" in windows-1252 and invalid as standalone UTF-8.
	body := []byte("Exhibited by: Ren\xe9 Dupont\n")
	doc, err := Parse("legacy", body, "")
	require.NoError(t, err)
	assert.Equal(t, "Exhibited by: René Dupont", doc.Segments[0].Text)
}

func TestParse_DeclaredCharset(t *testing.T) {
	body := []byte("<html><head><meta charset=\"iso-8859-1\"></head><body><p>Photographer: Jos\xe9</p></body></html>")
	doc, err := Parse("meta", body, "")
	require.NoError(t, err)
	assert.Equal(t, "Photographer: José", doc.Segments[0].Text)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"empty", []byte("   \n")},
		{"binary", []byte{0x89, 'P', 'N', 'G', 0x00, 0x01, 0x02}},
		{"markup only", []byte("<html><body><script>x()</script></body></html>")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad", tt.body, "")
			require.Error(t, err)
			var pe *model.ParseError
			assert.True(t, errors.As(err, &pe))
			assert.Equal(t, "bad", pe.DocumentID)
		})
	}
}

func TestParse_UnsupportedCharset(t *testing.T) {
	_, err := Parse("x", []byte("hello"), "klingon-8")
	var pe *model.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Reason, "unsupported charset")
}

func texts(doc *Document) []string {
	out := make([]string, len(doc.Segments))
	for i, s := range doc.Segments {
		out[i] = s.Text
	}
	return out
}

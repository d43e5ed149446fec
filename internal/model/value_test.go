package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_States(t *testing.T) {
	p := Present("Cattleya")
	assert.True(t, p.IsPresent())
	assert.Equal(t, "Cattleya", p.OrZero())

	var zero Text
	assert.True(t, zero.IsAbsent())
	assert.Equal(t, "", zero.Text())

	na := NotApplicable[string]()
	assert.True(t, na.IsNotApplicable())
	assert.Equal(t, NotApplicableText, na.Text())
	_, ok := na.Get()
	assert.False(t, ok)
}

func TestValue_Ptr(t *testing.T) {
	assert.Nil(t, Absent[int]().Ptr())
	assert.Nil(t, NotApplicable[int]().Ptr())
	p := Present(85).Ptr()
	require.NotNil(t, p)
	assert.Equal(t, 85, *p)

	assert.Equal(t, Present(85), FromPtr(p))
	assert.True(t, FromPtr[int](nil).IsAbsent())
}

func TestValue_JSONEncoding(t *testing.T) {
	type doc struct {
		A Text  `json:"a"`
		B Int   `json:"b"`
		C Float `json:"c"`
		D Text  `json:"d"`
	}
	in := doc{A: Present("N/A"), B: Present(85), C: Absent[float64](), D: NotApplicable[string]()}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"N/A","b":85,"c":null,"d":{"notApplicable":true}}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
	// A textual "N/A" stays distinct from the not-applicable tag.
	assert.True(t, out.A.IsPresent())
	assert.True(t, out.D.IsNotApplicable())
}

func TestValue_UnmarshalRejectsUnknownObject(t *testing.T) {
	var v Text
	err := json.Unmarshal([]byte(`{"other":1}`), &v)
	require.Error(t, err)
}

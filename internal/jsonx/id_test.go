package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	var got struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42,"b":"acc-7","c":null}`), &got))
	assert.Equal(t, ID("42"), got.A)
	assert.Equal(t, ID("acc-7"), got.B)
	assert.Equal(t, ID(""), got.C)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"42","b":"acc-7","c":""}`, string(out))
}

func TestIDRejectsObjects(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

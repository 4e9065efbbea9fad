package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memodrops/memodrops/store"
)

func TestDropImportToDrop(t *testing.T) {
	difficulty := int32(3)
	item := &dropImport{
		TopicCode:  "CRASE",
		DropType:   "mini_question",
		Difficulty: &difficulty,
		Content:    json.RawMessage(`{"question":"Vou a escola?"}`),
	}
	drop, err := item.toDrop()
	require.NoError(t, err)
	assert.Equal(t, "CRASE", drop.TopicCode)
	require.NotNil(t, drop.DropType)
	assert.Equal(t, store.DropTypeMiniQuestion, *drop.DropType)
	assert.Equal(t, &difficulty, drop.Difficulty)
	assert.JSONEq(t, `{"question":"Vou a escola?"}`, drop.DropText)

	bare, err := (&dropImport{TopicCode: "REGENCIA"}).toDrop()
	require.NoError(t, err)
	assert.Nil(t, bare.DropType)
	assert.Equal(t, "{}", bare.DropText)
}

func TestDropImportToDrop_Invalid(t *testing.T) {
	tests := []struct {
		name string
		item *dropImport
	}{
		{"missing topic", &dropImport{DropType: "flashcard"}},
		{"unknown type", &dropImport{TopicCode: "CRASE", DropType: "essay"}},
		{"invalid content", &dropImport{TopicCode: "CRASE", Content: json.RawMessage(`{"a":`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.item.toDrop()
			assert.Error(t, err)
		})
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"imported": 2}))
	assert.Equal(t, "{\n  \"imported\": 2\n}\n", buf.String())
}

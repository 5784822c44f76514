package hotbars

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensapp/storemigrate/src/pkg/document"
)

func fixedID(id string) IDGenerator {
	return func() (string, error) { return id, nil }
}

func TestDefaultHotbarMigration(t *testing.T) {
	doc := document.New()
	require.NoError(t, doc.Set(FieldHotbars, []map[string]any{{"id": "old", "name": "mine", "items": []any{}}}))

	d := NewDefaultHotbarMigration(fixedID("hb-1"))
	assert.Equal(t, DefaultHotbarVersion, d.Version.String())
	require.NoError(t, d.Run(doc))

	hotbars, err := NewView(doc).Hotbars()
	require.NoError(t, err)
	require.Len(t, hotbars, 1)

	hb := hotbars[0]
	assert.Equal(t, "hb-1", hb.ID)
	assert.Equal(t, DefaultHotbarName, hb.Name)
	require.Len(t, hb.Items, DefaultCells)
	require.NotNil(t, hb.Items[0])
	assert.Equal(t, CatalogEntity, hb.Items[0].Entity)
	for _, item := range hb.Items[1:] {
		assert.Nil(t, item)
	}
}

func TestDefaultHotbarMigration_Idempotent(t *testing.T) {
	doc := document.New()
	d := NewDefaultHotbarMigration(fixedID("hb-1"))

	require.NoError(t, d.Run(doc))
	first, err := doc.MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, d.Run(doc))
	second, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestDefaultHotbarMigration_EncodesEmptyCellsAsNull(t *testing.T) {
	doc := document.New()
	require.NoError(t, NewDefaultHotbarMigration(fixedID("hb-1")).Run(doc))

	var raw []struct {
		Items []json.RawMessage `json:"items"`
	}
	_, err := doc.Get(FieldHotbars, &raw)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "null", string(raw[0].Items[1]))
}

func TestDefaultHotbarMigration_IDError(t *testing.T) {
	boom := errors.New("no entropy")
	doc := document.New()
	err := NewDefaultHotbarMigration(func() (string, error) { return "", boom }).Run(doc)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, doc.Keys())
}

func TestRandomID(t *testing.T) {
	a, err := RandomID()
	require.NoError(t, err)
	b, err := RandomID()
	require.NoError(t, err)
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)

	d := NewDefaultHotbarMigration(nil)
	doc := document.New()
	require.NoError(t, d.Run(doc))
	hotbars, err := NewView(doc).Hotbars()
	require.NoError(t, err)
	assert.Len(t, hotbars[0].ID, 36)
}

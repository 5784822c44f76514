package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensapp/storemigrate/src/pkg/metadata"
	"github.com/lensapp/storemigrate/src/pkg/migration"
	"github.com/lensapp/storemigrate/src/stores/clusters"
	"github.com/lensapp/storemigrate/src/stores/hotbars"
	"github.com/lensapp/storemigrate/src/stores/weblinks"
)

func TestNewSchemaRegistry(t *testing.T) {
	reg, err := NewSchemaRegistry(Deps{AppDataPath: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, []migration.StoreKind{clusters.StoreKind, hotbars.StoreKind, weblinks.StoreKind}, reg.List())

	cluster, err := reg.Get(clusters.StoreKind)
	require.NoError(t, err)
	assert.Equal(t, migration.CategoryCritical, cluster.Category)
	assert.Equal(t, clusters.FileName, cluster.FileName)
	assert.Equal(t, clusters.StableIDVersion, cluster.Registry.Latest().String())

	weblink, err := reg.Get(weblinks.StoreKind)
	require.NoError(t, err)
	assert.Equal(t, migration.CategoryNormal, weblink.Category)
}

func TestMigrateAllStores(t *testing.T) {
	appData := t.TempDir()
	legacy := `{"clusters":[
		{"id":"a","kubeConfigPath":"/k","contextName":"dev"},
		{"id":"b","kubeConfigPath":"/k","contextName":"dev"}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(appData, clusters.FileName), []byte(legacy), 0600))
	storageDir := filepath.Join(appData, clusters.LocalStorageDir)
	require.NoError(t, os.MkdirAll(storageDir, 0755))
	for _, key := range []string{"a", "b"} {
		require.NoError(t, os.WriteFile(filepath.Join(storageDir, key+".json"), []byte(key), 0600))
	}

	var conflicts []clusters.Relocation
	reg, err := NewSchemaRegistry(Deps{
		AppDataPath: appData,
		HotbarID:    func() (string, error) { return "hotbar-id", nil },
		OnRelocationConflict: func(kind migration.StoreKind, r clusters.Relocation) {
			assert.Equal(t, clusters.StoreKind, kind)
			conflicts = append(conflicts, r)
		},
	})
	require.NoError(t, err)

	batch := migration.NewBatchMigrator()
	for _, kind := range reg.List() {
		schema, err := reg.Get(kind)
		require.NoError(t, err)
		doc, err := OpenStore(appData, schema)
		require.NoError(t, err)
		batch.Add(&migration.MigrationConfig{Schema: schema, Store: doc})
	}
	res := batch.Run(context.Background(), true)
	require.True(t, res.Success, "%v", res.Errors)

	id := clusters.DeriveID("/k", "dev")
	assert.FileExists(t, filepath.Join(storageDir, id+".json"))
	assert.NoFileExists(t, filepath.Join(storageDir, "a.json"))
	assert.NoFileExists(t, filepath.Join(storageDir, "b.json"))
	require.Len(t, conflicts, 1)
	assert.Equal(t, "b", conflicts[0].OldID)

	for _, kind := range reg.List() {
		schema, err := reg.Get(kind)
		require.NoError(t, err)
		doc, err := OpenStore(appData, schema)
		require.NoError(t, err)
		assert.True(t, doc.RecordedVersion().Equal(schema.Registry.Latest()), kind)
	}

	hotbarDoc, err := OpenStore(appData, mustSchema(t, reg, hotbars.StoreKind))
	require.NoError(t, err)
	bars, err := hotbars.NewView(hotbarDoc).Hotbars()
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "hotbar-id", bars[0].ID)
}

func mustSchema(t *testing.T, reg *migration.SchemaRegistry, kind migration.StoreKind) *migration.StoreSchema {
	t.Helper()
	s, err := reg.Get(kind)
	require.NoError(t, err)
	return s
}

func TestOpenStore_Invalid(t *testing.T) {
	appData := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(appData, weblinks.FileName), []byte("[]"), 0600))
	reg, err := NewSchemaRegistry(Deps{AppDataPath: appData})
	require.NoError(t, err)

	_, err = OpenStore(appData, mustSchema(t, reg, weblinks.StoreKind))
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(weblinks.StoreKind))
}

func TestHistoryObserver(t *testing.T) {
	store, err := metadata.Open(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	defer store.Close()

	o := NewHistoryObserver(store)
	o.StepApplied(clusters.StoreKind, migration.MustParseVersion(clusters.StableIDVersion), 20*time.Millisecond)
	o.StepFailed(weblinks.StoreKind, migration.MustParseVersion(weblinks.DefaultLinksVersion), errors.New("boom"))

	history, err := store.History(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, string(weblinks.StoreKind), history[0].StoreKind)
	assert.Equal(t, metadata.StatusFailed, history[0].Status)
	assert.Equal(t, "boom", history[0].Error)
	assert.Equal(t, clusters.StableIDVersion, history[1].Version)
	assert.Equal(t, metadata.StatusApplied, history[1].Status)
	assert.Equal(t, 20*time.Millisecond, history[1].Duration)
}

package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lensapp/storemigrate/src/configs"
)

func TestDailyRotatingWriter_Cleanup(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "app-"+time.Now().AddDate(0, 0, -10).Format("2006-01-02")+".log")
	recent := filepath.Join(dir, "app-"+time.Now().AddDate(0, 0, -1).Format("2006-01-02")+".log")
	other := filepath.Join(dir, "other.log")
	for _, f := range []string{old, recent, other} {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0644))
	}

	w := newDailyRotatingWriter(dir, "app", 3)
	_, err := w.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
	assert.FileExists(t, other)

	b, err := os.ReadFile(w.filenameForDay(time.Now().Format("2006-01-02")))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cfg := &configs.Config{
		Debug: true,
		Log: configs.Log{
			OutPutFolder: dir,
			SaveLastLog:  true,
		},
	}
	logger, closer, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetReportCaller(false)
	})

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	logger.Info("migration started")
	logger.SetOutput(os.Stderr)
	require.NoError(t, closer.Close())

	matches, err := filepath.Glob(filepath.Join(dir, logFileBase+"-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	b, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), "migration started")
}

func TestNew_NilConfig(t *testing.T) {
	_, _, err := New(nil)
	assert.Error(t, err)
}

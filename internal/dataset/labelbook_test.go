package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/subway-runner-go/internal/action"
)

func readBook(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestLabelBookFlushesEveryN(t *testing.T) {
	path := filepath.Join(t.TempDir(), LabelBookFile)
	book, err := OpenLabelBook(path, 3)
	require.NoError(t, err)

	require.NoError(t, book.Add("/data/left/frame_1.jpg", action.Left))
	require.NoError(t, book.Add("/data/up/frame_2.jpg", action.Up))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "book should not be written before the flush threshold")

	require.NoError(t, book.Add("/data/running/frame_3.jpg", action.Neutral))
	m := readBook(t, path)
	assert.Equal(t, map[string]string{
		"frame_1.jpg": "left",
		"frame_2.jpg": "jump",
		"frame_3.jpg": "running",
	}, m)
}

func TestLabelBookCloseFlushesRemainder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta", LabelBookFile)
	book, err := OpenLabelBook(path, 10)
	require.NoError(t, err)

	require.NoError(t, book.Add("frame_a.jpg", action.Down))
	require.NoError(t, book.Close())

	assert.Equal(t, map[string]string{"frame_a.jpg": "down"}, readBook(t, path))
}

func TestLabelBookResumesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), LabelBookFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"frame_old.jpg": "jump"}`), 0644))

	book, err := OpenLabelBook(path, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, book.Len())

	label, ok := book.Lookup("frame_old.jpg")
	require.True(t, ok)
	assert.Equal(t, action.Up, label)

	require.NoError(t, book.Add("frame_new.jpg", action.Right))
	require.NoError(t, book.Close())

	assert.Equal(t, map[action.Label]int{action.Up: 1, action.Right: 1}, book.Counts())
	assert.Len(t, readBook(t, path), 2)
}

func TestLabelBookRejectsUnknownLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), LabelBookFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"frame_x.jpg": "sideways"}`), 0644))

	_, err := OpenLabelBook(path, 0)
	assert.ErrorIs(t, err, action.ErrUnknownLabel)

	book, err := OpenLabelBook(filepath.Join(t.TempDir(), LabelBookFile), 0)
	require.NoError(t, err)
	assert.ErrorIs(t, book.Add("frame_y.jpg", action.Label(9)), action.ErrUnknownLabel)
}

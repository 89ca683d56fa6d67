package birdnet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLabels(t *testing.T, dir, locale string, lines string) {
	t.Helper()
	path := filepath.Join(dir, "labels_"+locale+".txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
}

func TestLoadLabelSetDefaultOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLabels(t, dir, "en", "A a_One\nB b_Two\n")

	set, err := LoadLabelSet(dir, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"A a_One", "B b_Two"}, set.Default)
	assert.Nil(t, set.Localized)
	assert.Equal(t, "en", set.Locale)
}

func TestLoadLabelSetWithLocale(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLabels(t, dir, "en", "A a_One\nB b_Two\n")
	writeLabels(t, dir, "de", "A a_Eins\nB b_Zwei\n")

	set, err := LoadLabelSet(dir, "de")
	require.NoError(t, err)
	assert.Equal(t, []string{"A a_Eins", "B b_Zwei"}, set.Localized)
	assert.Equal(t, "de", set.Locale)
}

func TestLoadLabelSetMissingLocaleFallsBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLabels(t, dir, "en", "A a_One\n")

	set, err := LoadLabelSet(dir, "fr")
	require.NoError(t, err, "missing non-default locale is not an error")
	assert.Nil(t, set.Localized)
	assert.Equal(t, "en", set.Locale)
}

func TestLoadLabelSetLineCountMismatchFallsBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLabels(t, dir, "en", "A a_One\nB b_Two\n")
	writeLabels(t, dir, "de", "A a_Eins\n")

	set, err := LoadLabelSet(dir, "de")
	require.NoError(t, err)
	assert.Nil(t, set.Localized, "mismatched localized file must be ignored")
	assert.Equal(t, "en", set.Locale)
}

func TestLoadLabelSetMissingDefaultIsFatal(t *testing.T) {
	t.Parallel()

	_, err := LoadLabelSet(t.TempDir(), "en")
	require.Error(t, err)
}

func TestLoadLabelSetSkipsBlankLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeLabels(t, dir, "en", "A a_One\n\n  \nB b_Two\n")

	set, err := LoadLabelSet(dir, "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"A a_One", "B b_Two"}, set.Default)
}

func TestLabelSetValidate(t *testing.T) {
	t.Parallel()

	set := &LabelSet{Default: []string{"A a_One", "B b_Two"}}
	assert.NoError(t, set.Validate(2))
	assert.Error(t, set.Validate(3))
}

package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderAttachesMetadata(t *testing.T) {
	t.Parallel()

	err := Newf("model %s missing", "acoustic").
		Component("birdnet").
		Category(CategoryModelLoad).
		Context("path", "/tmp/model.tflite").
		Build()

	assert.Equal(t, "birdnet", err.Component)
	assert.Equal(t, CategoryModelLoad, err.Category)
	assert.Equal(t, "/tmp/model.tflite", err.Context["path"])
	assert.False(t, err.Timestamp.IsZero())
	assert.Contains(t, err.Error(), "model acoustic missing")
	assert.Contains(t, err.Error(), "path=/tmp/model.tflite")
}

func TestDefaultCategoryIsGeneric(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Build()
	assert.Equal(t, CategoryGeneric, err.Category)
}

func TestUnwrapPreservesChain(t *testing.T) {
	t.Parallel()

	sentinel := stderrors.New("root cause")
	err := Wrap(sentinel).
		Component("engine").
		Category(CategoryProcessing).
		Build()

	assert.True(t, Is(err, sentinel), "the original error must remain matchable")
	assert.Equal(t, sentinel, stderrors.Unwrap(err))
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("a").Category(CategoryValidation).Build()
	b := Newf("completely different message").Category(CategoryValidation).Build()
	c := Newf("c").Category(CategoryAudio).Build()

	assert.True(t, stderrors.Is(a, b), "same category must match")
	assert.False(t, stderrors.Is(a, c), "different category must not match")
}

func TestAsExtractsEnhancedError(t *testing.T) {
	t.Parallel()

	var ee *EnhancedError
	err := Newf("wrapped").Component("conf").Build()

	require.True(t, As(err, &ee))
	assert.Equal(t, "conf", ee.Component)
}

func TestContextRendersSorted(t *testing.T) {
	t.Parallel()

	err := Newf("boom").
		Context("zebra", 1).
		Context("alpha", 2).
		Build()

	assert.Contains(t, err.Error(), "[alpha=2, zebra=1]")
}

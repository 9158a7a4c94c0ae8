package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CatalogInvalid, "bad catalog")
	require.Error(t, err)
	assert.Equal(t, "bad catalog", err.Error())
	assert.Equal(t, CatalogInvalid, Code(err))
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("unexpected end of JSON input")
	err := Wrap(cause, CacheParseFailed, "failed to parse cache")

	require.Error(t, err)
	assert.Equal(t, "failed to parse cache: unexpected end of JSON input", err.Error())
	assert.Equal(t, CacheParseFailed, Code(err))
	assert.ErrorIs(t, err, cause)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, Unknown, "never happens"))
	assert.NoError(t, WithFields(nil, Fields{"key": "value"}))
}

func TestWithFields(t *testing.T) {
	err := WithFields(New(ResourceNotFound, "section not found"), Fields{
		"section_id": "project-overview",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "section not found")
	assert.Contains(t, err.Error(), "section_id=project-overview")
	assert.Equal(t, ResourceNotFound, Code(err))
}

func TestWithFieldsMerges(t *testing.T) {
	err := WithFields(New(InvalidInput, "bad request"), Fields{"a": 1, "b": 2})
	err = WithFields(err, Fields{"b": 3})

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, 1, e.Fields()["a"])
	assert.Equal(t, 3, e.Fields()["b"])
}

func TestWithFieldsForeignError(t *testing.T) {
	cause := fmt.Errorf("plain error")
	err := WithFields(cause, Fields{"path": "src/main.go"})

	assert.Equal(t, Unknown, Code(err))
	assert.ErrorIs(t, err, cause)
}

func TestCodeForeignError(t *testing.T) {
	assert.Equal(t, Unknown, Code(stderrors.New("something else")))
	assert.True(t, Is(New(EmptyData, "no items"), EmptyData))
	assert.False(t, Is(New(EmptyData, "no items"), MissingTemplate))
}

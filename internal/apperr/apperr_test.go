package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSample = Conflict("sample_conflict", "already decided", "sudah diputuskan")

func TestErrorIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("verify: %w", errSample.Wrap(errors.New("zero rows")))

	assert.True(t, errors.Is(wrapped, errSample))
	assert.False(t, errors.Is(wrapped, Validation("other", "x", "y")))
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestLocalizedPicksLanguage(t *testing.T) {
	assert.Equal(t, "already decided", errSample.Localized("en-US,en;q=0.9"))
	assert.Equal(t, "sudah diputuskan", errSample.Localized("id-ID"))
	assert.Equal(t, "sudah diputuskan", errSample.Localized(""))
	assert.Equal(t, "sudah diputuskan", errSample.Localized("fr"))
}

type classified struct{}

func (classified) Error() string { return "classified" }
func (classified) AppError() *Error { return NotFound("thing_missing", "missing", "tidak ada") }

func TestFromConvertsClassifiersAndUnknowns(t *testing.T) {
	e := From(fmt.Errorf("lookup: %w", classified{}))
	require.NotNil(t, e)
	assert.Equal(t, KindNotFound, e.Kind)

	e = From(context.Canceled)
	assert.Equal(t, KindInternal, e.Kind)
	assert.ErrorIs(t, e, context.Canceled)

	assert.Nil(t, From(nil))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation: http.StatusBadRequest,
		KindNotFound:   http.StatusNotFound,
		KindPermission: http.StatusForbidden,
		KindConflict:   http.StatusConflict,
		KindUpstream:   http.StatusBadGateway,
		KindTimeout:    http.StatusGatewayTimeout,
		KindInternal:   http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}

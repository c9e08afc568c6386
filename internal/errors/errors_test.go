package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("book %s not found", "book-1")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrValidation))

	wrapped := fmt.Errorf("update book: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))
}

func TestError_CauseIsPreserved(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := RemoteWrite(cause, "write document for %s", "alice")

	assert.True(t, Is(err, ErrRemoteWrite))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "write document for alice: connection refused", err.Error())
}

func TestError_WithDetailsCopies(t *testing.T) {
	base := Validation("bad input")
	detailed := base.WithDetails(map[string]string{"name": "required"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)
	assert.Equal(t, CodeValidation, detailed.Code)
}

func TestCode_HTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:      http.StatusNotFound,
		CodeDuplicateUser: http.StatusConflict,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeFormat:        http.StatusBadRequest,
		CodeRateLimited:   http.StatusTooManyRequests,
		CodeRemoteWrite:   http.StatusBadGateway,
		CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotLoggedIn, CodeOf(fmt.Errorf("add quote: %w", NotLoggedIn())))
	assert.Equal(t, CodeInternal, CodeOf(stderrors.New("plain")))
}

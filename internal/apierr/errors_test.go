package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	testCases := []struct {
		status   int
		expected Kind
	}{
		{http.StatusUnauthorized, Unauthorized},
		{http.StatusForbidden, Forbidden},
		{http.StatusNotFound, NotFound},
		{http.StatusGone, NotFound},
		{http.StatusConflict, Conflict},
		{http.StatusInternalServerError, ServerError},
		{http.StatusBadGateway, ServerError},
		{http.StatusBadRequest, Unknown},
		{http.StatusTooManyRequests, Unknown},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, KindForStatus(tc.status))
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("load account: %w", New(NotFound, "account 42"))
	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, Is(err, NotFound))
	assert.True(t, errors.Is(err, &Error{Kind: NotFound}))
	assert.False(t, errors.Is(err, &Error{Kind: ServerError}))

	assert.Equal(t, Cancelled, KindOf(context.Canceled))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, Unknown))
}

func TestMostSpecificPrefersNotFound(t *testing.T) {
	server := FromStatus(http.StatusInternalServerError, nil)
	missing := New(NotFound, "entity 99 not in collection")

	assert.Same(t, missing, MostSpecific(server, nil, missing))
	assert.Same(t, server, MostSpecific(server, New(NetworkUnreachable, "dial")))
	assert.Nil(t, MostSpecific(nil, nil))
}

func TestExpiredCarriesSessionMessage(t *testing.T) {
	err := Expired(errors.New("refresh rejected"))
	assert.Equal(t, AuthExpired, err.Kind)
	assert.Contains(t, err.Error(), MessageSessionExpired)
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.Nil(t, FromContext(ctx))
	cancel()
	err := FromContext(ctx)
	if assert.NotNil(t, err) {
		assert.Equal(t, Cancelled, err.Kind)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

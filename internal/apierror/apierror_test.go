package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("date is required"), http.StatusBadRequest},
		{NotFound("client"), http.StatusNotFound},
		{Conflict("document %q already registered", "123"), http.StatusConflict},
		{Unauthorized("missing token"), http.StatusUnauthorized},
		{Forbidden("read only"), http.StatusForbidden},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestStatusSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create visit: %w", NotFound("plot"))
	assert.Equal(t, http.StatusNotFound, Status(err))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "create visit: plot not found", err.Error())
}

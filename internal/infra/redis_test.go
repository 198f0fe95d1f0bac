package infra

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url://")
	assert.Error(t, err)
}

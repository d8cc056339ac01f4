package mongo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/servicehub/integration/database/mongo"
)

func TestNew_EmptyURL(t *testing.T) {
	t.Parallel()
	_, err := mongo.New(context.Background(), mongo.Config{})
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()
	assert.False(t, mongo.IsTransient(nil))
	assert.False(t, mongo.IsTransient(errors.New("validation failed")))
	assert.True(t, mongo.IsTransient(context.DeadlineExceeded))
}

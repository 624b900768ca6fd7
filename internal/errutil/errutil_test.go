package errutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closer struct {
	err error
}

func (c *closer) Close() error {
	return c.err
}

func TestClose(t *testing.T) {
	t.Parallel()

	t.Run("Should set the error when none is set", func(t *testing.T) {
		t.Parallel()

		closeErr := errors.New("close failed")
		var err error
		Close(&closer{err: closeErr}, &err)
		assert.Equal(t, closeErr, err)
	})

	t.Run("Should keep the original error", func(t *testing.T) {
		t.Parallel()

		original := errors.New("original")
		err := original
		Close(&closer{err: errors.New("close failed")}, &err)
		assert.Equal(t, original, err)
	})

	t.Run("Should leave a nil error alone on success", func(t *testing.T) {
		t.Parallel()

		var err error
		Close(&closer{}, &err)
		assert.NoError(t, err)
	})
}

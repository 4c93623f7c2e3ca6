package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		code      pq.ErrorCode
		class     ErrorClass
		retryable bool
	}{
		{"40001", ErrorClassSerialization, true},
		{"40P01", ErrorClassDeadlock, true},
		{"55P03", ErrorClassTransient, true},
		{"23505", ErrorClassConflict, false},
		{"23514", ErrorClassPermanent, false},
		{"42P01", ErrorClassPermanent, false},
	}

	for _, tc := range cases {
		err := fmt.Errorf("insert sale: %w", &pq.Error{Code: tc.code})
		assert.Equal(t, tc.class, ClassifyError(err), string(tc.code))
		assert.Equal(t, tc.retryable, IsRetryable(err), string(tc.code))
	}

	assert.Equal(t, ErrorClassPermanent, ClassifyError(nil))
	assert.Equal(t, ErrorClassPermanent, ClassifyError(sql.ErrNoRows))
	assert.False(t, IsRetryable(errors.New("connection refused")))
}

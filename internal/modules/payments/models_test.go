package payments

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeProviderStatus(t *testing.T) {
	cases := map[string]string{
		"PAID":              StatusDone,
		"DONE":              StatusDone,
		"CONFIRMED":         StatusDone,
		"CANCELLED":         StatusCancelled,
		"PARTIAL_CANCELLED": StatusCancelled,
		"REFUNDED":          StatusCancelled,
		"READY":             StatusReady,
		"VIRTUAL_ACCOUNT_ISSUED": StatusReady,
		"":                  StatusReady,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeProviderStatus(in), in)
	}
}

func TestIsDup(t *testing.T) {
	assert.True(t, isDup(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, isDup(&mysql.MySQLError{Number: 1060}))
	assert.False(t, isDup(nil))
	assert.False(t, isDup(assert.AnError))
}

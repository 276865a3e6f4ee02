package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

func TestResult(t *testing.T) {
	cases := map[string]error{
		"success":      nil,
		"unauthorized": domain.ErrInvalidCredentials,
		"forbidden":    domain.ErrAccessForbidden,
		"bad_request":  domain.ErrInvalidLimit,
		"not_found":    domain.ErrCustomerNotFound,
		"conflict":     fmt.Errorf("wrapped: %w", domain.ErrEmailTaken),
		"error":        errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Result(err))
	}
}

func TestCustomerOperationsTotal(t *testing.T) {
	c := CustomerOperationsTotal.WithLabelValues("get", "not_found")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

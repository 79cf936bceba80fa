package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func counterValue(t *testing.T, method, route, status string) float64 {
	t.Helper()
	return testutil.ToFloat64(HTTPRequests.WithLabelValues(method, route, status))
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()
	require.NotNil(t, m)

	m.CounterSubmissions.WithLabelValues("blog", "success").Inc()
	m.CounterSubmissions.WithLabelValues("blog", "rejected").Inc()
	m.CounterSubmissions.WithLabelValues("blog", "rejected").Inc()
	m.CounterFileSelections.WithLabelValues("signup", "false").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterSubmissions.WithLabelValues("blog", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterSubmissions.WithLabelValues("blog", "rejected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterFileSelections.WithLabelValues("signup", "false")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "pubforms_test_form_submissions")
	assert.Contains(t, names, "pubforms_test_file_selections")
}

func TestNewManager_SeparateRegistries(t *testing.T) {
	// each test manager has its own registry, so creating two must not panic
	assert.NotPanics(t, func() {
		NewTestManager()
		NewTestManager()
	})
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementUsersRegistered()
	m.IncrementRecordMutation("create", "success")
	m.IncrementRecordMutation("create", "success")
	m.SetBreakerOpen("namecom", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersRegistered))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordMutations.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerOpen.WithLabelValues("namecom")))
}

func TestObserveRegistrarCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)

	m.ObserveRegistrarCall("list_records", "success", 0.2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrarRequests.WithLabelValues("list_records", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RegistrarLatency))
}

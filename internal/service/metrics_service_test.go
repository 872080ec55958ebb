package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceObserveOperation(t *testing.T) {
	m := NewMetricsService()
	m.ObserveOperation("create_faculty", nil)
	m.ObserveOperation("create_faculty", nil)
	m.ObserveOperation("create_faculty", errors.New("boom"))
	m.SetRegistrySize(2, 5, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("create_faculty", outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("create_faculty", outcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.faculties))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.students))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alumni))
}

func TestMetricsServiceHandler(t *testing.T) {
	m := NewMetricsService()
	m.SetRegistrySize(1, 1, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "registry_faculties 1")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveOperation("save_state", nil)
	m.SetRegistrySize(1, 2, 3)
	m.RecordCacheLookup(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegistryServicePublishesSize(t *testing.T) {
	svc, _ := newRegistryServiceForTest(t, nil)
	sef := createSEF(t, svc)
	enrollAna(t, svc, sef)

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.faculties))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.students))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.operations.WithLabelValues("create_student", outcomeSuccess)))
}

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOperationOutcome(t *testing.T) {
	m := New()

	m.Operation("send_invite", nil)
	m.Operation("send_invite", e.InvitationAlreadyExist(2))
	m.Operation("send_invite", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InviteOperationsTotal.WithLabelValues("send_invite", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InviteOperationsTotal.WithLabelValues("send_invite", "invitation_already_exist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InviteOperationsTotal.WithLabelValues("send_invite", "internal")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Operation("x", nil)
		m.Denied()
		m.ReminderRun(3, nil)
		m.RegisterDB(nil, "db")
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	m.Instrument("/x", h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestInstrumentAndHandler(t *testing.T) {
	m := New()
	h := m.Instrument("/v1/companies/{company_id}", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/companies/1", nil))
	m.ReminderRun(2, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/companies/{company_id}", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemindersSentTotal))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "companyhub_http_requests_total")
}

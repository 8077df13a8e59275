// internal/audit/recorder_test.go
package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"loan-verification/internal/common/logger"
	"loan-verification/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockTransport struct {
	statusCode int
	requests   []*http.Request
	bodies     []map[string]interface{}
}

func (t *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.requests = append(t.requests, req)
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		var doc map[string]interface{}
		if json.Unmarshal(raw, &doc) == nil {
			t.bodies = append(t.bodies, doc)
		}
	}

	code := t.statusCode
	if code == 0 {
		code = http.StatusCreated
	}
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}},
		Body:       io.NopCloser(strings.NewReader(`{}`)),
	}, nil
}

type fakeRecorder struct {
	events []Event
	err    error
}

func (r *fakeRecorder) Record(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

type stubGateway struct {
	saveErr     error
	completeErr error
}

func (s *stubGateway) LoadApplication(_ context.Context, _ string) (*models.LoanApplication, error) {
	return nil, nil
}

func (s *stubGateway) SaveStepRecord(_ context.Context, _ string, _ int, _ *models.StepRecord) error {
	return s.saveErr
}

func (s *stubGateway) CompleteVerification(_ context.Context, _ string, _ map[int]*models.StepRecord) error {
	return s.completeErr
}

func (s *stubGateway) StepStatus(_ context.Context, _ string, _ int) (bool, error) {
	return false, nil
}

func createTestRecorder(t *testing.T, transport *mockTransport) *ESRecorder {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
		Transport: transport,
	})
	require.NoError(t, err)
	return NewESRecorder(client, "verification-events", logger.NewTestLogger(t))
}

// ==========================
// ESRecorder
// ==========================

func TestESRecorder_Record(t *testing.T) {
	transport := &mockTransport{}
	recorder := createTestRecorder(t, transport)

	ordinal := 2
	err := recorder.Record(context.Background(), Event{
		ApplicationID: "app-001",
		Kind:          KindStepCompleted,
		StepID:        "financial",
		StepOrdinal:   &ordinal,
		Data:          map[string]interface{}{"income_verified": true},
	})
	require.NoError(t, err)

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Contains(t, req.URL.Path, "/verification-events/")

	require.Len(t, transport.bodies, 1)
	doc := transport.bodies[0]
	assert.Equal(t, "app-001", doc["applicationId"])
	assert.Equal(t, KindStepCompleted, doc["kind"])
	assert.Equal(t, float64(2), doc["stepOrdinal"])
	assert.NotEmpty(t, doc["id"])
	assert.NotEmpty(t, doc["recordedAt"])
}

func TestESRecorder_IndexError(t *testing.T) {
	transport := &mockTransport{statusCode: http.StatusInternalServerError}
	recorder := createTestRecorder(t, transport)

	err := recorder.Record(context.Background(), Event{
		ApplicationID: "app-001",
		Kind:          KindVerificationCompleted,
	})
	assert.Error(t, err)
}

// ==========================
// Gateway decorator
// ==========================

func TestGateway_RecordsCompletedSaves(t *testing.T) {
	recorder := &fakeRecorder{}
	gw := NewGateway(&stubGateway{}, recorder, logger.NewTestLogger(t))

	record := models.NewStepRecord()
	record.Data["identity_confirmed"] = true

	// A draft save is not audit-worthy.
	require.NoError(t, gw.SaveStepRecord(context.Background(), "app-001", 0, record))
	assert.Empty(t, recorder.events)

	record.Completed = true
	require.NoError(t, gw.SaveStepRecord(context.Background(), "app-001", 0, record))
	require.Len(t, recorder.events, 1)
	assert.Equal(t, KindStepCompleted, recorder.events[0].Kind)
	assert.Equal(t, "basic-info", recorder.events[0].StepID)
	require.NotNil(t, recorder.events[0].StepOrdinal)
	assert.Equal(t, 0, *recorder.events[0].StepOrdinal)
}

func TestGateway_NoEventOnSaveFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	gw := NewGateway(&stubGateway{saveErr: assert.AnError}, recorder, logger.NewTestLogger(t))

	record := models.NewStepRecord()
	record.Completed = true
	require.Error(t, gw.SaveStepRecord(context.Background(), "app-001", 0, record))
	assert.Empty(t, recorder.events)
}

func TestGateway_RecordsTerminalCommit(t *testing.T) {
	recorder := &fakeRecorder{}
	gw := NewGateway(&stubGateway{}, recorder, logger.NewTestLogger(t))

	require.NoError(t, gw.CompleteVerification(context.Background(), "app-001", map[int]*models.StepRecord{}))
	require.Len(t, recorder.events, 1)
	assert.Equal(t, KindVerificationCompleted, recorder.events[0].Kind)
}

func TestGateway_RecorderFailureIsSwallowed(t *testing.T) {
	recorder := &fakeRecorder{err: assert.AnError}
	gw := NewGateway(&stubGateway{}, recorder, logger.NewTestLogger(t))

	require.NoError(t, gw.CompleteVerification(context.Background(), "app-001", map[int]*models.StepRecord{}))
}

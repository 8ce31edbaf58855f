package congress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjenkins/billpulse/internal/config"
	"github.com/jjenkins/billpulse/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.CongressConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		RetryTimes: 3,
		RetryDelay: time.Millisecond,
	}, logger.Nop())
}

func TestListBills_SendsKeyAndParsesPage(t *testing.T) {
	// Arrange
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bill/119/hr", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "20", r.URL.Query().Get("offset"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"bills":[{"congress":119,"type":"HR","number":"1234","title":"A bill","url":"https://api.congress.gov/v3/bill/119/hr/1234"}],"pagination":{"count":4211}}`))
	})

	// Act
	list, err := client.ListBills(context.Background(), 119, "HR", 20, 10)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Equal(t, 4211, list.Count)
	require.Len(t, list.Bills, 1)
	number, err := list.Bills[0].BillNumber()
	require.NoError(t, err)
	assert.Equal(t, 1234, number)
	assert.Equal(t, "HR", list.Bills[0].Type)
}

func TestListBills_NoTypeUsesCongressPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bill/118", r.URL.Path)
		w.Write([]byte(`{"bills":[]}`))
	})

	list, err := client.ListBills(context.Background(), 118, "", 0, 20)

	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Empty(t, list.Bills)
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	// Arrange
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`{"bill":{"title":"Recovered","introducedDate":"2025-01-03"}}`))
		}
	})

	// Act
	detail, err := client.GetBill(context.Background(), 119, "hr", 1)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "Recovered", detail.Title)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGet_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	detail, err := client.GetBill(context.Background(), 119, "hr", 9999)

	require.NoError(t, err)
	assert.Nil(t, detail)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGet_ExhaustedRetriesYieldNothing(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	list, err := client.ListBills(context.Background(), 119, "", 0, 20)
	actions, actionsErr := client.GetActions(context.Background(), 119, "hr", 1)

	require.NoError(t, err)
	assert.Nil(t, list)
	require.NoError(t, actionsErr)
	assert.Empty(t, actions)
	assert.EqualValues(t, 6, atomic.LoadInt32(&calls))
}

func TestGet_MalformedBodyIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bill":`))
	})

	_, err := client.GetBill(context.Background(), 119, "hr", 1)

	assert.Error(t, err)
}

func TestGet_CanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetBill(ctx, 119, "hr", 1)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubResources_Decode(t *testing.T) {
	// Arrange
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bill/119/s/42/actions":
			w.Write([]byte(`{"actions":[{"actionDate":"2025-02-01","text":"Passed Senate","sourceSystem":{"code":0,"name":"Senate"}},{"actionDate":"2025-01-15","text":"Introduced in House","sourceSystem":{"code":"1"}}]}`))
		case "/bill/119/s/42/cosponsors":
			w.Write([]byte(`{"cosponsors":[{"bioguideId":"X000001","fullName":"Sen. Doe, Jane [D-CA]","party":"D","state":"CA","sponsorshipDate":"2025-01-20"}]}`))
		case "/bill/119/s/42/subjects":
			w.Write([]byte(`{"subjects":{"policyArea":{"name":"Health"},"legislativeSubjects":[{"name":"Medicare"},{"name":"Hospitals"}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	// Act
	actions, err := client.GetActions(ctx, 119, "S", 42)
	require.NoError(t, err)
	cosponsors, err := client.GetCosponsors(ctx, 119, "S", 42)
	require.NoError(t, err)
	subjects, err := client.GetSubjects(ctx, 119, "S", 42)
	require.NoError(t, err)
	versions, err := client.GetTextVersions(ctx, 119, "S", 42)
	require.NoError(t, err)

	// Assert
	require.Len(t, actions, 2)
	assert.Equal(t, "senate", actions[0].Chamber())
	assert.Equal(t, "house", actions[1].Chamber())
	require.Len(t, cosponsors, 1)
	assert.Equal(t, "2025-01-20", cosponsors[0].SponsorshipDate)
	require.NotNil(t, subjects)
	assert.Equal(t, "Health", subjects.PolicyAreaName())
	assert.Equal(t, []string{"Medicare", "Hospitals"}, subjects.Names())
	assert.Empty(t, versions)
}

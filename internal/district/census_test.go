package district

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCensusServer(t *testing.T, status int, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestCensusClient_Lookup(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "current districts",
			body:   `{"result":{"addressMatches":[{"geographies":{"119th Congressional Districts":[{"STUSAB":"CA","CD119":"11"}]}}]}}`,
			want:   "CA-11",
			wantOK: true,
		},
		{
			name:   "leading zero stripped",
			body:   `{"result":{"addressMatches":[{"geographies":{"119th Congressional Districts":[{"STUSAB":"IL","CD119":"07"}]}}]}}`,
			want:   "IL-7",
			wantOK: true,
		},
		{
			name:   "at large",
			body:   `{"result":{"addressMatches":[{"geographies":{"119th Congressional Districts":[{"STUSAB":"WY","CD119":"00"}]}}]}}`,
			want:   "WY-AL",
			wantOK: true,
		},
		{
			name:   "previous congress",
			body:   `{"result":{"addressMatches":[{"geographies":{"118th Congressional Districts":[{"STUSAB":"ny","CD118":"12"}]}}]}}`,
			want:   "NY-12",
			wantOK: true,
		},
		{
			name:   "no matches",
			body:   `{"result":{"addressMatches":[]}}`,
			wantOK: false,
		},
		{
			name:   "no district geography",
			body:   `{"result":{"addressMatches":[{"geographies":{"States":[{"STUSAB":"CA"}]}}]}}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newCensusServer(t, http.StatusOK, tt.body)
			client := NewCensusClient(srv.URL, time.Second)

			got, ok, err := client.Lookup(context.Background(), "94102")

			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCensusClient_Lookup_SendsQuery(t *testing.T) {
	srv, queries := newCensusServer(t, http.StatusOK, `{"result":{"addressMatches":[]}}`)
	client := NewCensusClient(srv.URL, time.Second)

	_, _, err := client.Lookup(context.Background(), "20001")

	require.NoError(t, err)
	require.Len(t, *queries, 1)
	q := (*queries)[0]
	assert.Contains(t, q, "zip=20001")
	assert.Contains(t, q, "benchmark=Public_AR_Current")
	assert.Contains(t, q, "vintage=Current_Current")
	assert.Contains(t, q, "format=json")
}

func TestCensusClient_Lookup_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv, _ := newCensusServer(t, http.StatusInternalServerError, "oops")
		client := NewCensusClient(srv.URL, time.Second)

		_, ok, err := client.Lookup(context.Background(), "94102")

		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := newCensusServer(t, http.StatusOK, "{not json")
		client := NewCensusClient(srv.URL, time.Second)

		_, ok, err := client.Lookup(context.Background(), "94102")

		assert.Error(t, err)
		assert.False(t, ok)
	})
}

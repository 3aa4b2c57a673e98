package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carrier-dashboard/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCount int
		wantErr   error
	}{
		{name: "valid array", status: http.StatusOK, body: testutil.CarrierJSON, wantCount: 6},
		{name: "empty array", status: http.StatusOK, body: `[]`, wantCount: 0},
		{name: "object instead of array", status: http.StatusOK, body: `{"error":"nope"}`, wantErr: ErrMalformed},
		{name: "invalid json", status: http.StatusOK, body: `[{"id":1},`, wantErr: ErrMalformed},
		{name: "server error", status: http.StatusInternalServerError, body: `[]`, wantErr: ErrNetwork},
		{name: "non-object elements skipped", status: http.StatusOK, body: `[1, {"id":2}, "x", null]`, wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := testutil.NewUpstream(t, tt.status, tt.body)
			f := NewFetcher(up.URL, time.Second, nil)

			records, err := f.Fetch(context.Background())

			require.NotNil(t, records)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, records)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.wantCount)
			assert.Equal(t, 1, up.Hits())
		})
	}
}

func TestFetcher_SendsJSONContentType(t *testing.T) {
	var gotHeader, gotMethod, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Content-Type")
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.URL, 0, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotHeader)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Empty(t, gotQuery)
}

func TestFetcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	records, err := NewFetcher(url, time.Second, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Empty(t, records)
}

func TestFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewFetcher(srv.URL, 50*time.Millisecond, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestDecodeRecords_PreservesKeyOrderAndTypes(t *testing.T) {
	records, skipped, err := DecodeRecords([]byte(`[{"zeta":1,"alpha":"a","mid":null,"flag":true,"nested":{"x":1},"zeta":2}]`))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"zeta", "alpha", "mid", "flag", "nested"}, rec.Keys())

	v, _ := rec.Get("zeta")
	assert.Equal(t, json.Number("2"), v)
	v, ok := rec.Get("mid")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "true", rec.Text("flag"))
	assert.Equal(t, `{"x":1}`, rec.Text("nested"))
}

func TestEncodeRecords_RoundTrip(t *testing.T) {
	records, _, err := DecodeRecords([]byte(testutil.CarrierJSON))
	require.NoError(t, err)

	body, err := EncodeRecords(records)
	require.NoError(t, err)

	again, _, err := DecodeRecords(body)
	require.NoError(t, err)
	assert.Equal(t, records, again)

	empty, err := EncodeRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFetchServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("é", 3000)))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchIsolatesFailures(t *testing.T) {
	srv := newFetchServer(t)
	fetch := NewFetchTool(srv.Client(), 200*time.Millisecond)

	ok, bad := srv.URL+"/ok", srv.URL+"/slow"
	call, progress := newCall(t, fetchArgs{URLs: []string{ok, bad}})
	out, err := fetch.Execute(context.Background(), call)
	require.NoError(t, err)

	var results map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	require.Contains(t, results, ok)
	require.Contains(t, results, bad)

	assert.Equal(t, 1000, utf8.RuneCountInString(results[ok]))
	assert.Contains(t, results[bad], "not available")
	assert.ElementsMatch(t, []string{"Downloaded " + ok, "not available " + bad}, progress.all())
}

func TestFetchReportsStatusCode(t *testing.T) {
	srv := newFetchServer(t)
	fetch := NewFetchTool(srv.Client(), time.Second)

	results := fetch.FetchAll(context.Background(), []string{srv.URL + "/missing", "://bad-url"}, nil)
	require.Len(t, results, 2)
	assert.Equal(t, "not available (status code 404)", results[srv.URL+"/missing"])
	assert.True(t, strings.HasPrefix(results["://bad-url"], "not available ("))
}

func TestFetchRequiresURLs(t *testing.T) {
	call, _ := newCall(t, fetchArgs{})
	_, err := NewFetchTool(nil, 0).Execute(context.Background(), call)
	assert.Error(t, err)
}

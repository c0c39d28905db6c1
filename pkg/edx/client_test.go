package edx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mitodl/edupipe/pkg/clients"
	"github.com/mitodl/edupipe/pkg/errors"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	httpClient := clients.NewHTTPClient(clients.DefaultHTTPConfig(), zap.NewNop())
	t.Cleanup(func() { _ = httpClient.Close() })

	token := &Token{AccessToken: "tok-abc", TokenType: "jwt"}
	return NewClient(serverURL, token, httpClient, zap.NewNop())
}

func TestWhoAmI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, mePath, r.URL.Path)
		assert.Equal(t, "JWT tok-abc", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"svc-worker"}`))
	}))
	defer server.Close()

	username, err := newTestClient(t, server.URL).WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "svc-worker", username)
}

func TestWhoAmIUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).WhoAmI(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}

// coursesServer serves a fixed sequence of catalog pages keyed by the
// cursor query parameter and records the cursor of every request.
func coursesServer(t *testing.T, pages map[string]string) (*httptest.Server, *[]string) {
	t.Helper()

	var cursors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == mePath {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"username":"svc-worker"}`))
			return
		}

		require.Equal(t, coursesPath, r.URL.Path)
		assert.Equal(t, "svc-worker", r.URL.Query().Get("username"))

		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)

		body, ok := pages[cursor]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))

	return server, &cursors
}

func TestCoursesPagination(t *testing.T) {
	server, cursors := coursesServer(t, map[string]string{
		"":   `{"results":[{"id":"course-v1:A"},{"id":"course-v1:B"}],"pagination":{"next":"c1"}}`,
		"c1": `{"results":[{"id":"course-v1:C"}],"pagination":{"next":"c2"}}`,
		"c2": `{"results":[{"id":"course-v1:D"}],"pagination":{"next":""}}`,
	})
	defer server.Close()

	it, err := newTestClient(t, server.URL).Courses(context.Background())
	require.NoError(t, err)

	var ids []string
	for {
		page, err := it.Next(context.Background())
		require.NoError(t, err)
		if page == nil {
			break
		}
		for _, course := range page {
			ids = append(ids, course["id"].(string))
		}
	}

	// Each page's continuation cursor is sent back on the next request.
	assert.Equal(t, []string{"", "c1", "c2"}, *cursors)
	assert.Equal(t, []string{"course-v1:A", "course-v1:B", "course-v1:C", "course-v1:D"}, ids)
	assert.True(t, it.Exhausted())

	// Exhaustion is sticky.
	page, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestCoursesSinglePage(t *testing.T) {
	server, cursors := coursesServer(t, map[string]string{
		"": `{"results":[{"id":"course-v1:A"}],"pagination":{"next":""}}`,
	})
	defer server.Close()

	it, err := newTestClient(t, server.URL).Courses(context.Background())
	require.NoError(t, err)

	page, err := it.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.True(t, it.Exhausted())

	page, err = it.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, page)

	assert.Equal(t, []string{""}, *cursors)
}

func TestCoursesAbortOnPageFailure(t *testing.T) {
	// The c1 page is missing, so the second fetch returns 500.
	server, cursors := coursesServer(t, map[string]string{
		"": `{"results":[{"id":"course-v1:A"}],"pagination":{"next":"c1"}}`,
	})
	defer server.Close()

	it, err := newTestClient(t, server.URL).Courses(context.Background())
	require.NoError(t, err)

	page, err := it.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, page, 1)

	page, err = it.Next(context.Background())
	require.Error(t, err)
	assert.Nil(t, page)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFetch))
	assert.True(t, it.Exhausted())

	// No further requests after the failure.
	page, err = it.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, page)
	assert.Equal(t, []string{"", "c1"}, *cursors)
}

func TestCoursesMissingUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Courses(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

package toolset

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supersteps/graphrun/graph"
)

func TestClient_InvokeTool_PostsToExpectedPathAndRoundTripsMessages(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody wireMessages

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(wireMessages{Messages: []any{"reply"}})
	}))
	defer srv.Close()

	c := NewClient(WithAuthToken("secret"))
	out, err := c.InvokeTool(context.Background(), srv.URL, "search", graph.NewState("query"))

	require.NoError(t, err)
	assert.Equal(t, "/tools/search", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, []any{"query"}, gotBody.Messages)
	assert.Equal(t, []any{"reply"}, out.Messages)
}

func TestClient_InvokeTool_UnauthorizedSurfacesErrUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.InvokeTool(context.Background(), srv.URL, "search", graph.NewState("query"))

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_InvokeTool_NonOKStatusIsInvalidOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.InvokeTool(context.Background(), srv.URL, "search", graph.NewState("query"))

	assert.ErrorIs(t, err, graph.ErrInvalidOutput)
}

func TestClient_InvokeTool_MalformedResponseIsInvalidOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.InvokeTool(context.Background(), srv.URL, "search", graph.NewState("query"))

	assert.ErrorIs(t, err, graph.ErrInvalidOutput)
}

func TestClient_Catalog_ReturnsDescriptors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tools", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]ToolDescriptor{{Name: "search", Path: "/tools/search", Doc: "searches things"}})
	}))
	defer srv.Close()

	c := NewClient()
	descriptors, err := c.Catalog(context.Background(), srv.URL)

	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "search", descriptors[0].Name)
}

func TestClient_Catalog_UnauthorizedSurfacesErrUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.Catalog(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrUnauthorized)
}

package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_CatalogListsRegisteredToolsInOrder(t *testing.T) {
	s := New(nil)
	s.RegisterTool(Tool{Name: "uppercase", Doc: "uppercases input", Fn: func(context.Context, []any) ([]any, error) { return nil, nil }})
	s.RegisterTool(Tool{Name: "reverse", Doc: "reverses input", Fn: func(context.Context, []any) ([]any, error) { return nil, nil }})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var descriptors []toolDescriptor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&descriptors))
	require.Len(t, descriptors, 2)
	assert.Equal(t, "uppercase", descriptors[0].Name)
	assert.Equal(t, "/tools/uppercase", descriptors[0].Path)
	assert.Equal(t, "reverse", descriptors[1].Name)
}

func TestServer_InvokeToolRoundTrips(t *testing.T) {
	s := New(nil)
	s.RegisterTool(Tool{Name: "echo", Fn: func(_ context.Context, messages []any) ([]any, error) {
		return append(messages, "echoed"), nil
	}})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body, _ := json.Marshal(wireMessages{Messages: []any{"hi"}})
	resp, err := http.Post(srv.URL+"/tools/echo", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out wireMessages
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []any{"hi", "echoed"}, out.Messages)
}

func TestServer_InvokeToolRequiresAuthWhenConfigured(t *testing.T) {
	s := New(nil)
	s.Authenticate = func(authHeader string) bool { return authHeader == "Bearer secret" }
	s.RegisterTool(Tool{Name: "secure", Fn: func(context.Context, []any) ([]any, error) { return nil, nil }})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body, _ := json.Marshal(wireMessages{Messages: []any{}})

	resp, err := http.Post(srv.URL+"/tools/secure", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/tools/secure", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

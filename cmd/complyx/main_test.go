package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyx/complyx/pkg/schema"
)

type recorded struct {
	method string
	path   string
	user   string
	body   map[string]any
}

func fakeDaemon(t *testing.T, status int, reply any) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, user: r.Header.Get("X-User-ID")}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		calls = append(calls, rec)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func execute(t *testing.T, srv *httptest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("COMPLYX_ADDR", "")
	t.Setenv("COMPLYX_USER", "")
	t.Setenv("COMPLYX_GATEWAY_TOKEN", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--addr", srv.URL, "--user", "alice"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDocumentsGet(t *testing.T) {
	srv, calls := fakeDaemon(t, http.StatusOK, schema.Document{ID: "doc-1", Title: "Quality Manual"})

	out, err := execute(t, srv, "", "documents", "get", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Quality Manual")
	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/v1/documents/doc-1", (*calls)[0].path)
	assert.Equal(t, "alice", (*calls)[0].user)
}

func TestDocumentsCreateFromStdin(t *testing.T) {
	srv, calls := fakeDaemon(t, http.StatusCreated, schema.Document{ID: "doc-9"})

	_, err := execute(t, srv, `{"title":"Policy","document_type":"policy"}`, "documents", "create")
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
	assert.Equal(t, "Policy", (*calls)[0].body["title"])
}

func TestTransitionSendsComment(t *testing.T) {
	srv, calls := fakeDaemon(t, http.StatusOK, schema.Document{ID: "doc-1", Status: schema.StatusDraft})

	_, err := execute(t, srv, "", "transition", "doc-1", "reject", "-m", "needs owner")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/documents/doc-1/reject", (*calls)[0].path)
	assert.Equal(t, "needs owner", (*calls)[0].body["comment"])
}

func TestGrantsAdd(t *testing.T) {
	srv, calls := fakeDaemon(t, http.StatusCreated, schema.Grant{ID: "g-1"})

	_, err := execute(t, srv, "", "grants", "add", "doc-1", "--department", "Finance", "--edit", "--expires", "2027-01-31")
	require.NoError(t, err)
	body := (*calls)[0].body
	assert.Equal(t, "Finance", body["department"])
	assert.Equal(t, true, body["can_edit"])
	assert.Equal(t, "2027-01-31T00:00:00Z", body["expires_at"])
	assert.NotContains(t, body, "can_read")
}

func TestGrantsAddToUserKeepsActingUser(t *testing.T) {
	srv, calls := fakeDaemon(t, http.StatusCreated, schema.Grant{ID: "g-2"})

	_, err := execute(t, srv, "", "grants", "add", "doc-1", "--grantee", "bob", "--download")
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, "alice", (*calls)[0].user)
	assert.Equal(t, "bob", (*calls)[0].body["user_id"])
	assert.Equal(t, true, (*calls)[0].body["can_download"])
}

func TestGrantsAddNeedsScope(t *testing.T) {
	srv, calls := fakeDaemon(t, http.StatusCreated, schema.Grant{})

	_, err := execute(t, srv, "", "grants", "add", "doc-1", "--edit")
	require.Error(t, err)
	assert.Empty(t, *calls)
}

func TestServerErrorSurfaces(t *testing.T) {
	srv, _ := fakeDaemon(t, http.StatusForbidden, map[string]string{"error": "access denied", "reason": "access_level"})

	_, err := execute(t, srv, "", "documents", "get", "doc-1")
	require.ErrorIs(t, err, schema.ErrAccessDenied)
}

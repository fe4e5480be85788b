package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quicknote/internal/noteservice"
	"github.com/starford/quicknote/internal/paths"
	"github.com/starford/quicknote/internal/testutil"
)

type testEnv struct {
	svc    *noteservice.Service
	router http.Handler
	layout paths.Layout
}

func newTestEnv(t *testing.T, authToken string, sseHandler http.Handler) *testEnv {
	t.Helper()
	svc, layout := testutil.TestSession(t, "api-test", nil)

	return &testEnv{
		svc:    svc,
		router: NewRouter(svc, authToken != "", authToken, sseHandler),
		layout: layout,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateAndGetNote(t *testing.T) {
	e := newTestEnv(t, "", nil)

	w := e.do(t, http.MethodPost, "/notes", CreateNoteRequest{Name: "hello.md", Content: "# Hello\nWorld"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/notes/hello.md", w.Header().Get("Location"))

	w = e.do(t, http.MethodGet, "/notes/hello.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	note := decode[NoteDetail](t, w)
	assert.Equal(t, "Hello", note.Title)
	assert.Equal(t, "# Hello\nWorld", note.Content)
	assert.Equal(t, `"`+note.Checksum+`"`, w.Header().Get("ETag"))
}

func TestCreateGeneratesName(t *testing.T) {
	e := newTestEnv(t, "", nil)

	w := e.do(t, http.MethodPost, "/notes", CreateNoteRequest{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	note := decode[NoteDetail](t, w)
	assert.Regexp(t, `^Note-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z\.md$`, note.Name)
	assert.Empty(t, note.Content)
}

func TestCreateDuplicate(t *testing.T) {
	e := newTestEnv(t, "", nil)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/notes", CreateNoteRequest{Name: "a.md"}).Code)

	w := e.do(t, http.MethodPost, "/notes", CreateNoteRequest{Name: "a.md"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateInvalidJSON(t *testing.T) {
	e := newTestEnv(t, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveCreatesAndOverwrites(t *testing.T) {
	e := newTestEnv(t, "", nil)
	empty := ""
	w := e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &empty})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := "second"
	w = e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &body})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/notes/a.md", nil)
	assert.Equal(t, "second", decode[NoteDetail](t, w).Content)
}

func TestSaveWithIfMatch(t *testing.T) {
	e := newTestEnv(t, "", nil)
	v1 := "v1"
	w := e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &v1})
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")

	v2 := "v2"
	w = e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &v2}, "If-Match", `"stale"`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &v2}, "If-Match", tag)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSaveRequiresContent(t *testing.T) {
	e := newTestEnv(t, "", nil)
	w := e.do(t, http.MethodPut, "/notes/a.md", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidNames(t *testing.T) {
	e := newTestEnv(t, "", nil)
	body := "x"
	for _, target := range []string{"/notes/..%2Fescape.md", "/notes/sub%2Fa.md", "/notes/image.png", "/notes/noext"} {
		w := e.do(t, http.MethodPut, target, SaveNoteRequest{Content: &body})
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	_, err := os.Stat(filepath.Join(e.layout.Root, "escape.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestEncodedSpaceInName(t *testing.T) {
	e := newTestEnv(t, "", nil)
	body := "spaced"
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/notes/with%20space.md", SaveNoteRequest{Content: &body}).Code)

	_, err := os.Stat(filepath.Join(e.layout.Active, "with space.md"))
	assert.NoError(t, err)
}

func TestDeleteNote(t *testing.T) {
	e := newTestEnv(t, "", nil)
	body := "bye"
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &body}).Code)

	w := e.do(t, http.MethodDelete, "/notes/a.md", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodDelete, "/notes/a.md", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/recycle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[RecycleListResponse](t, w)
	require.Len(t, rec.Entries, 1)
	assert.Equal(t, "a.md", rec.Entries[0].Name)
	assert.Equal(t, 30, rec.RetentionDays)

	w = e.do(t, http.MethodGet, "/log", nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[LogResponse](t, w)
	require.Len(t, logs.Entries, 1)
	assert.Equal(t, "DELETE", logs.Entries[0].Operation)
	assert.Equal(t, "api-test", logs.Entries[0].Actor)
}

func TestListNotes(t *testing.T) {
	e := newTestEnv(t, "", nil)
	for _, name := range []string{"b.txt", "a.md"} {
		body := "content of " + name
		require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/notes/"+name, SaveNoteRequest{Content: &body}).Code)
	}

	w := e.do(t, http.MethodGet, "/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[NoteListResponse](t, w)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "a.md", resp.Notes[0].Name)
	assert.Equal(t, "content of b.txt", resp.Notes[1].Content)
}

func TestListNotesMissingDirectory(t *testing.T) {
	e := newTestEnv(t, "", nil)
	require.NoError(t, os.RemoveAll(e.layout.Active))

	w := e.do(t, http.MethodGet, "/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[NoteListResponse](t, w).Total)

	body := "x"
	w = e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &body})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExportNote(t *testing.T) {
	e := newTestEnv(t, "tok", nil)
	auth := []string{"Authorization", "Bearer tok"}
	body := "exported"
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &body}, auth...).Code)

	dest := filepath.Join(t.TempDir(), "copy.md")
	w := e.do(t, http.MethodPost, "/notes/a.md/export", ExportRequest{Destination: dest}, auth...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, dest, decode[ExportResponse](t, w).Path)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "exported", string(data))

	w = e.do(t, http.MethodPost, "/notes/a.md/export", ExportRequest{}, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[ExportResponse](t, w).Canceled)

	w = e.do(t, http.MethodPost, "/notes/none.md/export", ExportRequest{Destination: dest}, auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportRefusedWithoutAuth(t *testing.T) {
	e := newTestEnv(t, "", nil)
	body := "payload"
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &body}).Code)

	dest := filepath.Join(t.TempDir(), ".bashrc")
	w := e.do(t, http.MethodPost, "/notes/a.md/export", ExportRequest{Destination: dest})
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err), "nothing is written outside the store")
}

func TestNoteNameDecodedOnce(t *testing.T) {
	e := newTestEnv(t, "", nil)
	body := "literal percent"
	w := e.do(t, http.MethodPut, "/notes/a%2541.md", SaveNoteRequest{Content: &body})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, err := os.Stat(filepath.Join(e.layout.Active, "a%41.md"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(e.layout.Active, "aA.md"))
	assert.True(t, os.IsNotExist(err))

	w = e.do(t, http.MethodGet, "/notes/a%2541.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a%41.md", decode[NoteDetail](t, w).Name)
}

func TestSweep(t *testing.T) {
	e := newTestEnv(t, "", nil)
	body := "old"
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/notes/a.md", SaveNoteRequest{Content: &body}).Code)
	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/notes/a.md", nil).Code)

	old := time.Now().Add(-31 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(e.layout.Recycle, "a.md"), old, old))

	w := e.do(t, http.MethodPost, "/recycle/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a.md"}, decode[SweepResponse](t, w).Purged)
}

func TestHealthIsPublic(t *testing.T) {
	e := newTestEnv(t, "secret", nil)
	w := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	e := newTestEnv(t, "secret", nil)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/notes", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/notes", nil, "Authorization", "secret").Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer secret").Code)
}

func TestAuthDisabled(t *testing.T) {
	e := newTestEnv(t, "", nil)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/notes", nil).Code)
}

// blockingSSE stands in for the broker: it writes headers and blocks until
// the request context ends.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestEventsAuthProtected(t *testing.T) {
	e := newTestEnv(t, "secret", blockingSSE)
	w := e.do(t, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEventsValidToken(t *testing.T) {
	e := newTestEnv(t, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}

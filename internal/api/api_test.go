package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/testutil"
	"github.com/starford/licaudit/internal/workspace"
)

// testEnv sets up a loaded workspace over a temp project and SQLite DB.
// An empty authToken means disabled mode; otherwise token mode.
func testEnv(t *testing.T, authToken string) (*workspace.Workspace, http.Handler) {
	t.Helper()
	ws, _ := testutil.TestWorkspace(t, workspace.WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}))
	return ws, NewRouter(ws, authToken != "", authToken, nil)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createAttribution(t *testing.T, router http.Handler, info models.PackageInfo, resources ...string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/attributions", CreateAttributionRequest{Attribution: info, Resources: resources})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp CreateAttributionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.ID == "" {
		t.Fatal("empty id")
	}
	return resp.ID
}

func listAttributions(t *testing.T, router http.Handler, target string) AttributionsResponse {
	t.Helper()
	w := do(t, router, http.MethodGet, target, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s = %d, body = %s", target, w.Code, w.Body.String())
	}
	var resp AttributionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestStatus(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if !st.Loaded || st.ProjectID != "demo" || st.External != 3 {
		t.Errorf("status = %+v", st)
	}
}

func TestNoSnapshot(t *testing.T) {
	_, store := testutil.TestProject(t)
	ws, err := workspace.New(store, testutil.TestDB(t), testutil.Logger(),
		workspace.WithMetrics(workspace.NewMetrics(prometheus.NewRegistry())))
	if err != nil {
		t.Fatal(err)
	}
	router := NewRouter(ws, false, "", nil)
	w := do(t, router, http.MethodGet, "/attributions", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("unloaded = %d, want 503", w.Code)
	}
}

func TestCreateAndListAttributions(t *testing.T) {
	_, router := testEnv(t, "")
	id := createAttribution(t, router, models.PackageInfo{PackageName: "app", LicenseName: "MIT"}, "/src/")

	manual := listAttributions(t, router, "/attributions")
	if manual.Kind != models.KindManual || len(manual.Attributions) != 1 {
		t.Fatalf("manual = %+v", manual)
	}
	if got := manual.Attributions[id].Resources; len(got) != 1 || got[0] != "/src/" {
		t.Errorf("resources = %v", got)
	}

	expanded := listAttributions(t, router, "/attributions/expanded?kind=manual")
	if got := expanded.Attributions[id].Resources; len(got) != 2 {
		t.Errorf("expanded = %v, want both files below /src/", got)
	}

	external := listAttributions(t, router, "/attributions?kind=external")
	if len(external.Attributions) != 3 {
		t.Errorf("external = %d, want 3", len(external.Attributions))
	}
}

func TestCreateAttribution_Invalid(t *testing.T) {
	_, router := testEnv(t, "")
	cases := map[string]any{
		"bad json":      "{",
		"no resources":  CreateAttributionRequest{},
		"relative path": CreateAttributionRequest{Resources: []string{"src/app.js"}},
	}
	for name, body := range cases {
		if w := do(t, router, http.MethodPost, "/attributions", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", name, w.Code)
		}
	}
	if w := do(t, router, http.MethodGet, "/attributions?kind=bogus", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bogus kind = %d, want 400", w.Code)
	}
}

func TestUpdateAndDeleteAttribution(t *testing.T) {
	_, router := testEnv(t, "")
	id := createAttribution(t, router, models.PackageInfo{PackageName: "app"}, "/src/app.js")

	w := do(t, router, http.MethodPut, "/attributions/"+id, UpdateAttributionRequest{Attribution: models.PackageInfo{PackageName: "renamed"}})
	if w.Code != http.StatusNoContent {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	manual := listAttributions(t, router, "/attributions")
	if got := manual.Attributions[id]; got.PackageName != "renamed" || len(got.Resources) != 1 {
		t.Errorf("updated = %+v", got)
	}

	if w := do(t, router, http.MethodDelete, "/attributions/"+id, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/attributions/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/attributions/ghost", UpdateAttributionRequest{}); w.Code != http.StatusNotFound {
		t.Errorf("update ghost = %d, want 404", w.Code)
	}
}

func TestReplaceLinkUnlinkConfirm(t *testing.T) {
	_, router := testEnv(t, "")
	a := createAttribution(t, router, models.PackageInfo{PackageName: "a", PreSelected: true}, "/src/app.js")
	b := createAttribution(t, router, models.PackageInfo{PackageName: "b"}, "/src/lib/util.js")

	if w := do(t, router, http.MethodPost, "/attributions/confirm", IDsRequest{IDs: []string{a}}); w.Code != http.StatusNoContent {
		t.Fatalf("confirm = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/attributions/"+b+"/link", ResourcesRequest{Resources: []string{"/vendor/"}}); w.Code != http.StatusNoContent {
		t.Fatalf("link = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/attributions/"+b+"/unlink", ResourcesRequest{Resources: []string{"/src/lib/util.js"}}); w.Code != http.StatusNoContent {
		t.Fatalf("unlink = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/attributions/"+a+"/replace", ReplaceRequest{Target: b}); w.Code != http.StatusNoContent {
		t.Fatalf("replace = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/attributions/"+a+"/replace", ReplaceRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("replace without target = %d, want 400", w.Code)
	}

	manual := listAttributions(t, router, "/attributions")
	if _, ok := manual.Attributions[a]; ok {
		t.Errorf("%s should be replaced", a)
	}
	got := manual.Attributions[b].Resources
	if len(got) != 2 || got[0] != "/src/app.js" || got[1] != "/vendor/" {
		t.Errorf("resources = %v", got)
	}
}

func TestResolveUnresolve(t *testing.T) {
	ws, router := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/resolved", IDsRequest{IDs: []string{"e1"}}); w.Code != http.StatusNoContent {
		t.Fatalf("resolve = %d", w.Code)
	}
	if ws.Status().Resolved != 1 {
		t.Errorf("resolved = %d, want 1", ws.Status().Resolved)
	}
	if w := do(t, router, http.MethodDelete, "/resolved", IDsRequest{IDs: []string{"e1"}}); w.Code != http.StatusNoContent {
		t.Fatalf("unresolve = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/resolved", IDsRequest{IDs: []string{"nope"}}); w.Code != http.StatusNotFound {
		t.Errorf("resolve unknown = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/resolved", IDsRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("resolve empty = %d, want 400", w.Code)
	}
}

func TestResourceQueries(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/resources/criticality?path=/src/app.js", nil)
	var crit CriticalityResponse
	_ = json.Unmarshal(w.Body.Bytes(), &crit)
	if w.Code != http.StatusOK || crit.Criticality != models.CriticalityHigh {
		t.Errorf("criticality = %d %+v", w.Code, crit)
	}
	if w := do(t, router, http.MethodGet, "/resources/criticality", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing path = %d, want 400", w.Code)
	}

	createAttribution(t, router, models.PackageInfo{PackageName: "x"}, "/src/lib/util.js")
	w = do(t, router, http.MethodGet, "/resources/manual?path=/src/", nil)
	var cm ContainsManualResponse
	_ = json.Unmarshal(w.Body.Bytes(), &cm)
	if !cm.ContainsManualAttribution {
		t.Errorf("contains manual = %+v", cm)
	}

	w = do(t, router, http.MethodGet, "/resources?path=/src/lib/util.js", nil)
	var res ResourceResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Exists || len(res.External) != 2 || len(res.Manual) != 1 {
		t.Errorf("resource = %+v", res)
	}
}

func TestSignalsAndStatistics(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/signals?resource=/src/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signals = %d, body = %s", w.Code, w.Body.String())
	}
	var sigs SignalsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sigs)
	if len(sigs.Signals) == 0 {
		t.Error("expected signals")
	}

	w = do(t, router, http.MethodGet, "/statistics?kind=external", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("statistics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"attributionCountPerSourcePerLicense"`) {
		t.Errorf("statistics body = %s", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/search?q=lodash", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != "e2" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestExportEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	createAttribution(t, router, models.PackageInfo{PackageName: "react", LicenseName: "MIT"}, "/src/app.js")

	w := do(t, router, http.MethodGet, "/export?format=spdx-yaml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "demo-20240501T120000Z.spdx.yaml") {
		t.Errorf("disposition = %q", w.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(w.Body.String(), "spdxVersion: SPDX-2.2") {
		t.Errorf("body = %s", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/exports", nil)
	var list ExportListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Exports) != 1 {
		t.Fatalf("exports = %+v", list.Exports)
	}

	if w := do(t, router, http.MethodGet, "/exports/demo-20240501T120000Z.spdx.yaml", nil); w.Code != http.StatusOK {
		t.Errorf("get export = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/exports/demo-20240501T120000Z.spdx.yaml", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete export = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/exports/demo-20240501T120000Z.spdx.yaml", nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted export = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/export?format=pdf", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format = %d, want 400", w.Code)
	}
}

// Input upload tests.

func uploadInput(t *testing.T, router http.Handler, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "input.json")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/input", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportInput(t *testing.T) {
	ws, router := testEnv(t, "")
	next := strings.Replace(testutil.SampleInput, `"projectId": "demo"`, `"projectId": "next"`, 1)

	w := uploadInput(t, router, "file", []byte(next))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	if ws.Status().ProjectID != "next" {
		t.Errorf("project = %q, want next", ws.Status().ProjectID)
	}
}

func TestImportInput_Invalid(t *testing.T) {
	ws, router := testEnv(t, "")
	if w := uploadInput(t, router, "file", []byte(`{"metadata": {}}`)); w.Code != http.StatusBadRequest {
		t.Errorf("invalid input = %d, want 400", w.Code)
	}
	if w := uploadInput(t, router, "wrong", []byte(testutil.SampleInput)); w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
	if ws.Status().ProjectID != "demo" {
		t.Error("failed import replaced the snapshot")
	}
}

// Authentication tests.

func TestAuthenticate_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthenticate_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	if w := do(t, router, http.MethodGet, "/status", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthenticate_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthenticate_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/status", nil); w.Code != http.StatusOK {
		t.Errorf("disabled mode = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// testEnvWithSSE creates a router with a dummy SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	ws, _ := testutil.TestWorkspace(t)

	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(ws, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router := testEnvWithSSE(t, false, "")

	// The handler blocks until the context is done.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestAuthenticate_QueryTokenOnlyForEvents(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	if w := do(t, router, http.MethodGet, "/status?access_token=tok", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("query token on /status = %d, want 401", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with query token should not 401")
	}

	if w := do(t, router, http.MethodGet, "/events?access_token=nope", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong query token = %d, want 401", w.Code)
	}
}

func TestAuthenticate_SchemeCaseInsensitive(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("lowercase scheme = %d, want 200", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/status", nil); w.Header().Get("WWW-Authenticate") == "" {
		t.Error("401 without WWW-Authenticate")
	}
}

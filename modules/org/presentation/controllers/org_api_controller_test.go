package controllers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
	"github.com/iota-uz/organi-flow/modules/org/services"
	"github.com/iota-uz/organi-flow/pkg/application"
	"github.com/iota-uz/organi-flow/pkg/httpapi"
	"github.com/iota-uz/organi-flow/pkg/middleware"
)

// 1 -> {2, 3}, 3 -> {4}
func newTestRouter(t *testing.T) (*mux.Router, *services.OrgService) {
	t.Helper()
	root, err := orgtree.FromRoster([]orgtree.Member{
		{ID: 1, Name: "John Smith", Title: "CEO"},
		{ID: 2, Name: "Sarah Johnson", Title: "CTO", ManagerID: 1},
		{ID: 3, Name: "Lisa Brown", Title: "HR Director", ManagerID: 1},
		{ID: 4, Name: "Jessica Miller", Title: "HR Manager", ManagerID: 3},
	})
	require.NoError(t, err)
	org, err := services.NewOrgService(root)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := application.New(&application.ApplicationOptions{Logger: logger})
	app.RegisterServices(org)

	r := mux.NewRouter()
	r.Use(middleware.WithLogger(logger, middleware.DefaultLoggerOptions()))
	NewOrgAPIController(app, "organi-flow-api", "1.0.0").Register(r)
	return r, org
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-test")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeTree(t *testing.T, rec *httptest.ResponseRecorder) *orgtree.Employee {
	t.Helper()
	var node orgtree.Node
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &node))
	tree, err := orgtree.FromNode(&node)
	require.NoError(t, err)
	return tree
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpapi.ErrorEnvelope {
	t.Helper()
	var env httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestGetInfo(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var info APIInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, "organi-flow-api", info.API)
	require.Equal(t, "1.0.0", info.Version)
	require.Equal(t, "memory", info.Database)
	require.Len(t, info.DateCreated, len("02-01-2006"))
}

func TestGetHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"employees":4`)
}

func TestGetTree_WireShape(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/employees", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"attributes":{"id":1,"title":"CEO","manager_id":0}`)
	require.Contains(t, rec.Body.String(), `"children":[]`)
	require.Equal(t, 4, decodeTree(t, rec).Size())
}

func TestGetEmployee(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/employees/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, decodeTree(t, rec).Size())

	rec = do(t, r, http.MethodGet, "/employees/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "ORG_EMPLOYEE_NOT_FOUND", env.Code)
	require.Equal(t, "req-test", env.Meta["request_id"])

	rec = do(t, r, http.MethodGet, "/employees/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReassignManager_StatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		status   int
		code     string
		metaKey  string
		metaWant string
	}{
		{"self management", `{"employee_id": 3, "new_manager_id": 3}`, http.StatusBadRequest, "ORG_SELF_MANAGEMENT", "employee_id", "3"},
		{"cycle", `{"employee_id": 3, "new_manager_id": 4}`, http.StatusBadRequest, "ORG_CYCLE", "manager_id", "4"},
		{"unknown employee", `{"employee_id": 999, "new_manager_id": 1}`, http.StatusNotFound, "ORG_EMPLOYEE_NOT_FOUND", "id", "999"},
		{"unknown manager", `{"employee_id": 4, "new_manager_id": 999}`, http.StatusNotFound, "ORG_MANAGER_NOT_FOUND", "id", "999"},
		{"second root", `{"employee_id": 4, "new_manager_id": 0}`, http.StatusBadRequest, "ORG_INVALID_STRUCTURE", "id", "4"},
		{"missing manager", `{"employee_id": 4}`, http.StatusBadRequest, "ORG_VALIDATION_FAILED", "fields", "new_manager_id,target_id"},
		{"manager and target", `{"employee_id": 4, "new_manager_id": 2, "target_id": 1}`, http.StatusBadRequest, "ORG_VALIDATION_FAILED", "fields", "new_manager_id,target_id"},
		{"bad employee id", `{"employee_id": 0, "new_manager_id": 2}`, http.StatusBadRequest, "ORG_VALIDATION_FAILED", "fields", "reassignManagerRequest.EmployeeID"},
		{"target is descendant", `{"employee_id": 3, "target_id": 4}`, http.StatusBadRequest, "ORG_CYCLE", "employee_id", "3"},
		{"unknown target", `{"employee_id": 3, "target_id": 999}`, http.StatusNotFound, "ORG_EMPLOYEE_NOT_FOUND", "id", "999"},
		{"unknown field", `{"employee_id": 4, "new_manager_id": 2, "boss": 1}`, http.StatusBadRequest, "ORG_INVALID_BODY", "request_id", "req-test"},
		{"malformed", `{"employee_id":`, http.StatusBadRequest, "ORG_INVALID_BODY", "request_id", "req-test"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, org := newTestRouter(t)
			before := org.GetTree(t.Context())

			rec := do(t, r, http.MethodPost, "/update-employee-manager", tc.body)
			require.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			require.Equal(t, tc.code, env.Code)
			require.Equal(t, tc.metaWant, env.Meta[tc.metaKey])
			require.True(t, orgtree.Equal(before, org.GetTree(t.Context())))
		})
	}
}

func TestReassignManager_Moves(t *testing.T) {
	r, org := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/update-employee-manager", `{"employee_id": 4, "new_manager_id": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	tree := decodeTree(t, rec)
	require.Equal(t, 2, tree.Find(4).ManagerID)
	require.True(t, orgtree.Equal(tree, org.GetTree(t.Context())))
}

func TestReassignManager_TargetIDSwapsManagers(t *testing.T) {
	r, org := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/update-employee-manager", `{"employee_id": 2, "target_id": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	tree := decodeTree(t, rec)
	require.Equal(t, 3, tree.Find(2).ManagerID)
	require.Equal(t, 1, tree.Find(4).ManagerID)
	require.True(t, orgtree.Equal(tree, org.GetTree(t.Context())))
}

func TestSwapPositions(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/swap-positions", `{"employee1_id": 2, "employee2_id": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decodeTree(t, rec)
	require.Equal(t, 3, tree.Find(2).ManagerID)
	require.Equal(t, 1, tree.Find(4).ManagerID)

	rec = do(t, r, http.MethodPost, "/swap-positions", `{"employee1_id": 1, "employee2_id": 2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "ORG_CYCLE", decodeEnvelope(t, rec).Code)
}

func TestReplaceTree(t *testing.T) {
	r, org := newTestRouter(t)

	body := `{"name": "Maria Garcia", "attributes": {"id": 10, "title": "CEO", "manager_id": 0}, "children": [
		{"name": "Robert Kim", "attributes": {"id": 11, "title": "DevOps", "manager_id": 10}, "children": []}
	]}`
	rec := do(t, r, http.MethodPost, "/update-manager", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, org.GetTree(t.Context()).Size())

	rec = do(t, r, http.MethodGet, "/employees", "")
	require.Equal(t, "Maria Garcia", decodeTree(t, rec).Name)

	dup := `{"name": "A", "attributes": {"id": 20, "manager_id": 0}, "children": [
		{"name": "B", "attributes": {"id": 21, "manager_id": 20}, "children": []},
		{"name": "C", "attributes": {"id": 21, "manager_id": 20}, "children": []}
	]}`
	rec = do(t, r, http.MethodPost, "/update-manager", dup)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "ORG_INVALID_STRUCTURE", env.Code)
	require.Equal(t, "21", env.Meta["id"])
	require.Equal(t, "Maria Garcia", org.GetTree(t.Context()).Name)

	rec = do(t, r, http.MethodPost, "/update-manager", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "request body is required", decodeEnvelope(t, rec).Message)
}

func TestReplaceTree_IgnoresUnknownKeys(t *testing.T) {
	r, org := newTestRouter(t)

	body := `{"name": "", "__rd3t": {"collapsed": true}, "attributes": {"id": 10, "title": "CEO", "manager_id": 0, "department": "Board"}, "children": [
		{"name": "Robert Kim", "attributes": {"id": 11, "title": "DevOps", "manager_id": 10, "department": "IT"}, "children": []}
	]}`
	rec := do(t, r, http.MethodPost, "/update-manager", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tree := org.GetTree(t.Context())
	require.Equal(t, "", tree.Name)
	require.Equal(t, "Robert Kim", tree.Find(11).Name)
}

func TestReplaceTree_ValidationFailureIsReported(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/update-manager", `{"name": "A", "attributes": {"id": 0}, "children": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "ORG_VALIDATION_FAILED", env.Code)
	require.Equal(t, "request body failed validation", env.Message)
	require.Equal(t, "Node.Attributes.ID", env.Meta["fields"])

	rec = do(t, r, http.MethodPost, "/update-manager", `{"name": "A", "attributes": {"id": 1},`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid json body", decodeEnvelope(t, rec).Message)
}

func TestReplaceTree_NullChildCountsAsRejectedReplace(t *testing.T) {
	r, org := newTestRouter(t)
	before := mutationCount(t, "replace", "invalid_structure")

	rec := do(t, r, http.MethodPost, "/update-manager", `{"name": "A", "attributes": {"id": 1, "manager_id": 0}, "children": [null]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "ORG_INVALID_STRUCTURE", decodeEnvelope(t, rec).Code)
	require.Equal(t, before+1, mutationCount(t, "replace", "invalid_structure"))
	require.Equal(t, 4, org.GetTree(t.Context()).Size())
}

func mutationCount(t *testing.T, op, result string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "org_tree_mutations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := labelsToMap(m)
			if labels["op"] == op && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestReplaceFromRoster(t *testing.T) {
	r, org := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/employees/batch", `{"employees": [
		{"id": 1, "name": "John Smith", "title": "CEO", "manager_id": null},
		{"id": 5, "name": "Emily Davis", "title": "Marketing", "manager_id": 1}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, org.GetTree(t.Context()).Size())

	rec = do(t, r, http.MethodPost, "/employees/batch", `{"employees": [
		{"id": 1, "name": "John Smith"},
		{"id": 5, "name": "Emily Davis", "manager_id": 6}
	]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "ORG_INVALID_STRUCTURE", decodeEnvelope(t, rec).Code)
}

func TestPatchTree(t *testing.T) {
	r, org := newTestRouter(t)

	rec := do(t, r, http.MethodPatch, "/employees", `[{"op": "replace", "path": "/children/0/attributes/title", "value": "VP Engineering"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "VP Engineering", org.GetTree(t.Context()).Find(2).Title)

	rec = do(t, r, http.MethodPatch, "/employees", `[{"op": "remove", "path": "/children/7"}]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "ORG_INVALID_STRUCTURE", decodeEnvelope(t, rec).Code)
}

func TestSearchEmployees(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/employees/search?q=hr&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Results, 1)

	rec = do(t, r, http.MethodGet, "/employees/search", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/employees/search?q=hr&limit=x", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportEmployees(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/employees/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "employees.csv")
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)

	rec = do(t, r, http.MethodGet, "/employees/export?format=XLSX", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows("Employees")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.NoError(t, f.Close())

	rec = do(t, r, http.MethodGet, "/employees/export?format=pdf", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstrumentAPI_UsesStableEndpointLabel(t *testing.T) {
	c := &OrgAPIController{}

	handler := c.instrumentAPI("org.test.endpoint", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/employees/42", nil))

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range mfs {
		if mf.GetName() != "org_api_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := labelsToMap(m)
			if labels["endpoint"] == "org.test.endpoint" && labels["result"] == "4xx" {
				require.GreaterOrEqual(t, m.GetCounter().GetValue(), float64(1))
				found = true
			}
		}
	}
	require.True(t, found, "expected metric org_api_requests_total with endpoint label")
}

func labelsToMap(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

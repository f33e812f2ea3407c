package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
	"github.com/iota-uz/organi-flow/modules/org/services"
	"github.com/iota-uz/organi-flow/pkg/application"
	"github.com/iota-uz/organi-flow/pkg/composables"
	"github.com/iota-uz/organi-flow/pkg/httpapi"
)

const storageBackend = "memory"

type APIInfo struct {
	API         string `json:"api"`
	Version     string `json:"version"`
	DateCreated string `json:"date_created"`
	Database    string `json:"database"`
}

type OrgAPIController struct {
	app  application.Application
	org  *services.OrgService
	info APIInfo
}

// NewOrgAPIController serves the tree owned by the registered OrgService.
// date_created reports the day the process started.
func NewOrgAPIController(app application.Application, apiName, apiVersion string) application.Controller {
	return &OrgAPIController{
		app: app,
		org: app.Service(services.OrgService{}).(*services.OrgService),
		info: APIInfo{
			API:         apiName,
			Version:     apiVersion,
			DateCreated: time.Now().UTC().Format("02-01-2006"),
			Database:    storageBackend,
		},
	}
}

func (c *OrgAPIController) Key() string {
	return "/employees"
}

func (c *OrgAPIController) Register(r *mux.Router) {
	r.HandleFunc("/", c.instrumentAPI("org.info", c.GetInfo)).Methods(http.MethodGet)
	r.HandleFunc("/health", c.instrumentAPI("org.health", c.GetHealth)).Methods(http.MethodGet)

	r.HandleFunc("/employees", c.instrumentAPI("org.tree.get", c.GetTree)).Methods(http.MethodGet)
	r.HandleFunc("/employees", c.instrumentAPI("org.tree.patch", c.PatchTree)).Methods(http.MethodPatch)
	r.HandleFunc("/employees/search", c.instrumentAPI("org.employees.search", c.SearchEmployees)).Methods(http.MethodGet)
	r.HandleFunc("/employees/export", c.instrumentAPI("org.employees.export", c.ExportEmployees)).Methods(http.MethodGet)
	r.HandleFunc("/employees/batch", c.instrumentAPI("org.employees.batch", c.ReplaceFromRoster)).Methods(http.MethodPost)
	r.HandleFunc("/employees/{id}", c.instrumentAPI("org.employees.get", c.GetEmployee)).Methods(http.MethodGet)

	r.HandleFunc("/update-manager", c.instrumentAPI("org.tree.replace", c.ReplaceTree)).Methods(http.MethodPost)
	r.HandleFunc("/update-employee-manager", c.instrumentAPI("org.employees.reassign", c.ReassignManager)).Methods(http.MethodPost)
	r.HandleFunc("/swap-positions", c.instrumentAPI("org.employees.swap", c.SwapPositions)).Methods(http.MethodPost)
}

func (c *OrgAPIController) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.info)
}

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Checks    map[string]any `json:"checks"`
}

func (c *OrgAPIController) GetHealth(w http.ResponseWriter, r *http.Request) {
	tree := c.org.GetTree(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks: map[string]any{
			"tree": map[string]any{
				"status":    "healthy",
				"employees": tree.Size(),
				"root_id":   tree.ID,
				"version":   c.org.Version(),
			},
		},
	})
}

func (c *OrgAPIController) GetTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orgtree.ToNode(c.org.GetTree(r.Context())))
}

func (c *OrgAPIController) GetEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_INVALID_QUERY", "invalid id")
		return
	}
	sub, err := c.org.FindEmployee(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, orgtree.ToNode(sub))
}

type searchQuery struct {
	Q     string `form:"q"`
	Limit int    `form:"limit"`
}

type searchResponse struct {
	Results []services.SearchResult `json:"results"`
}

func (c *OrgAPIController) SearchEmployees(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	q, err := composables.UseQuery(searchQuery{}, r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_INVALID_QUERY", "limit must be an integer")
		return
	}
	if strings.TrimSpace(q.Q) == "" {
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_INVALID_QUERY", "q is required")
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: c.org.Search(r.Context(), q.Q, q.Limit)})
}

func (c *OrgAPIController) ExportEmployees(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	format, ok := services.ParseExportFormat(strings.ToLower(r.URL.Query().Get("format")))
	if !ok {
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_INVALID_QUERY", "format must be csv or xlsx")
		return
	}
	var buf bytes.Buffer
	if err := services.Export(&buf, c.org.GetTree(r.Context()), format); err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (c *OrgAPIController) ReplaceTree(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	// Unknown keys are ignored so clients may carry extra attributes.
	var req orgtree.Node
	if err := httpapi.DecodeJSONLenient(r, &req); err != nil {
		writeBodyError(w, r, requestID, err)
		return
	}
	tree, err := c.org.ReplaceFromNode(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, orgtree.ToNode(tree))
}

// reassignManagerRequest carries either new_manager_id (move the subtree) or
// target_id (exchange managers with that employee).
type reassignManagerRequest struct {
	EmployeeID   int  `json:"employee_id" validate:"gt=0"`
	NewManagerID *int `json:"new_manager_id" validate:"omitempty,gte=0"`
	TargetID     *int `json:"target_id" validate:"omitempty,gt=0"`
}

func (c *OrgAPIController) ReassignManager(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	var req reassignManagerRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, r, requestID, err)
		return
	}
	if (req.NewManagerID == nil) == (req.TargetID == nil) {
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_VALIDATION_FAILED",
			"exactly one of new_manager_id or target_id is required", "fields", "new_manager_id,target_id")
		return
	}

	var (
		tree *orgtree.Employee
		err  error
	)
	if req.TargetID != nil {
		tree, err = c.org.SwapPositions(r.Context(), req.EmployeeID, *req.TargetID)
	} else {
		tree, err = c.org.ReassignManager(r.Context(), req.EmployeeID, *req.NewManagerID)
	}
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, orgtree.ToNode(tree))
}

type swapPositionsRequest struct {
	Employee1ID int `json:"employee1_id" validate:"gt=0"`
	Employee2ID int `json:"employee2_id" validate:"gt=0"`
}

func (c *OrgAPIController) SwapPositions(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	var req swapPositionsRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, r, requestID, err)
		return
	}
	tree, err := c.org.SwapPositions(r.Context(), req.Employee1ID, req.Employee2ID)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, orgtree.ToNode(tree))
}

func (c *OrgAPIController) ReplaceFromRoster(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	var req orgtree.RosterDocument
	if err := httpapi.DecodeJSONLenient(r, &req); err != nil {
		writeBodyError(w, r, requestID, err)
		return
	}
	tree, err := c.org.ReplaceFromRoster(r.Context(), req.Members())
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, orgtree.ToNode(tree))
}

func (c *OrgAPIController) PatchTree(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	raw, err := httpapi.ReadBody(r)
	if err != nil {
		writeBodyError(w, r, requestID, err)
		return
	}
	tree, err := c.org.ApplyPatch(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, orgtree.ToNode(tree))
}

func ensureRequestID(r *http.Request) string {
	if v := composables.UseRequestID(r.Context()); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.Header.Get("X-Request-ID")); v != "" {
		return v
	}
	return uuid.NewString()
}

func writeBodyError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	composables.UseLogger(r.Context()).WithError(err).Debug("rejected request body")
	var verr *httpapi.ValidationError
	if errors.As(err, &verr) {
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_VALIDATION_FAILED",
			"request body failed validation", "fields", strings.Join(verr.Fields, ","))
		return
	}
	message := "invalid json body"
	if errors.Is(err, httpapi.ErrEmptyBody) {
		message = "request body is required"
	}
	writeAPIError(w, http.StatusBadRequest, requestID, "ORG_INVALID_BODY", message)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	var (
		selfErr      *orgtree.SelfManagementError
		cycleErr     *orgtree.CycleError
		notFoundErr  *orgtree.NotFoundError
		structureErr *orgtree.InvalidStructureError
	)
	switch {
	case errors.As(err, &selfErr):
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_SELF_MANAGEMENT", err.Error(),
			"employee_id", strconv.Itoa(selfErr.EmployeeID))
	case errors.As(err, &cycleErr):
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_CYCLE", err.Error(),
			"employee_id", strconv.Itoa(cycleErr.EmployeeID),
			"manager_id", strconv.Itoa(cycleErr.ManagerID))
	case errors.As(err, &notFoundErr):
		writeAPIError(w, http.StatusNotFound, requestID, "ORG_"+strings.ToUpper(string(notFoundErr.Role))+"_NOT_FOUND", err.Error(),
			"id", strconv.Itoa(notFoundErr.ID))
	case errors.As(err, &structureErr):
		writeAPIError(w, http.StatusBadRequest, requestID, "ORG_INVALID_STRUCTURE", err.Error(),
			"id", strconv.Itoa(structureErr.ID))
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("org request failed")
		writeAPIError(w, http.StatusInternalServerError, requestID, "ORG_INTERNAL", "internal server error")
	}
}

// writeAPIError writes the error envelope; extra is a list of meta key/value pairs.
func writeAPIError(w http.ResponseWriter, status int, requestID, code, message string, extra ...string) {
	meta := map[string]string{}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	for i := 0; i+1 < len(extra); i += 2 {
		meta[extra[i]] = extra[i+1]
	}
	writeJSON(w, status, httpapi.ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

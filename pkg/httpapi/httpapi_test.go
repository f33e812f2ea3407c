package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type reassignBody struct {
	EmployeeID   int  `json:"employee_id" validate:"gt=0"`
	NewManagerID *int `json:"new_manager_id" validate:"required,gte=0"`
}

func TestWriteError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusNotFound, "NOT_FOUND", "employee 9 not found", RequestMeta("req-1")))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "NOT_FOUND", env.Code)
	require.Equal(t, "req-1", env.Meta["request_id"])
}

func TestRequestMeta_Empty(t *testing.T) {
	require.Nil(t, RequestMeta(""))
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"ok", `{"employee_id": 4, "new_manager_id": 0}`, false},
		{"empty", ``, true},
		{"unknown field", `{"employee_id": 4, "new_manager_id": 2, "x": 1}`, true},
		{"missing manager", `{"employee_id": 4}`, true},
		{"bad id", `{"employee_id": 0, "new_manager_id": 2}`, true},
		{"trailing document", `{"employee_id": 4, "new_manager_id": 2} {}`, true},
		{"not json", `employee_id=4`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/update-employee-manager", strings.NewReader(tc.body))
			var dst reassignBody
			err := DecodeJSON(r, &dst)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 4, dst.EmployeeID)
			require.Equal(t, 0, *dst.NewManagerID)
		})
	}
}

func TestDecodeJSON_ValidationErrorIsTyped(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/update-employee-manager", strings.NewReader(`{"employee_id": 0, "new_manager_id": 2}`))
	var dst reassignBody
	err := DecodeJSON(r, &dst)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"reassignBody.EmployeeID"}, verr.Fields)

	r = httptest.NewRequest(http.MethodPost, "/update-employee-manager", strings.NewReader(`{"employee_id":`))
	err = DecodeJSON(r, &dst)
	require.Error(t, err)
	require.False(t, errors.As(err, &verr))
}

func TestDecodeJSONLenient_IgnoresUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/update-manager", strings.NewReader(`{"employee_id": 4, "new_manager_id": 2, "department": "HR"}`))
	var dst reassignBody
	require.NoError(t, DecodeJSONLenient(r, &dst))
	require.Equal(t, 4, dst.EmployeeID)
	require.Equal(t, 2, *dst.NewManagerID)

	r = httptest.NewRequest(http.MethodPost, "/update-manager", strings.NewReader(`{"employee_id": 4, "new_manager_id": 2} {}`))
	require.Error(t, DecodeJSONLenient(r, &dst))
}

func TestReadBody_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodPatch, "/employees", strings.NewReader(""))
	_, err := ReadBody(r)
	require.ErrorIs(t, err, ErrEmptyBody)
}

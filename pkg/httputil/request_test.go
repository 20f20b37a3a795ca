package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError bool
	}{
		{name: "valid JSON", body: `{"name": "test"}`},
		{name: "invalid JSON", body: `{invalid}`, expectError: true},
		{name: "empty body", body: ``, expectError: true},
		{name: "unknown field", body: `{"name": "test", "admin": true}`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			var dest struct {
				Name string `json:"name"`
			}

			err := ParseJSON(req, &dest)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "test", dest.Name)
			}
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`{invalid}`))
	var dest map[string]string

	ok := ParseJSONOrError(w, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathUUID(t *testing.T) {
	id := uuid.New()

	req := mux.SetURLVars(httptest.NewRequest("GET", "/users/"+id.String(), nil), map[string]string{"id": id.String()})
	got, err := ParsePathUUID(req, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req = mux.SetURLVars(httptest.NewRequest("GET", "/users/abc", nil), map[string]string{"id": "abc"})
	_, err = ParsePathUUID(req, "id")
	assert.Error(t, err)

	_, err = ParsePathUUID(httptest.NewRequest("GET", "/users", nil), "id")
	assert.Error(t, err)
}

func TestParsePathUUIDOrError_Invalid(t *testing.T) {
	w := httptest.NewRecorder()
	req := mux.SetURLVars(httptest.NewRequest("GET", "/users/abc", nil), map[string]string{"id": "abc"})

	_, ok := ParsePathUUIDOrError(w, req, "id")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/users?page=3&pageSize=x", nil)

	page, err := ParseQueryInt(req, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	_, err = ParseQueryInt(req, "pageSize", 10)
	assert.Error(t, err)

	missing, err := ParseQueryInt(req, "other", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, missing)
}

func TestParseQueryUUID(t *testing.T) {
	id := uuid.New()

	got, err := ParseQueryUUID(httptest.NewRequest("GET", "/checklists?userId="+id.String(), nil), "userId")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)

	got, err = ParseQueryUUID(httptest.NewRequest("GET", "/checklists", nil), "userId")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseQueryUUID(httptest.NewRequest("GET", "/checklists?userId=nope", nil), "userId")
	assert.Error(t, err)
}

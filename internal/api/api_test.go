package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gere2/AIGNITE/internal/assess"
	"github.com/Gere2/AIGNITE/internal/registry/registrytest"
	"github.com/Gere2/AIGNITE/internal/storage"
	"github.com/Gere2/AIGNITE/internal/vocab"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, token string) *gin.Engine {
	t.Helper()
	store, err := storage.OpenSQLite(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := assess.New(registrytest.Load(t), vocab.Default(), store, assess.Options{Logger: logger})
	return NewRouter(Options{Service: svc, BearerToken: token, Logger: logger})
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

const validBody = `{
	"heat_source": "70",
	"materials": ["Metal", "Hormigón"],
	"structural_status": "Malo",
	"detector": "N",
	"detector_type": "2",
	"area": 120
}`

func TestHealth(t *testing.T) {
	r := newTestRouter(t, "")
	w := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UP", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDPropagated(t *testing.T) {
	r := newTestRouter(t, "")
	w := do(t, r, http.MethodGet, "/health", "", "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestMetricsExposed(t *testing.T) {
	r := newTestRouter(t, "")
	do(t, r, http.MethodPost, "/api/v1/predict", validBody)

	w := do(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "aignite_predictions_total")
}

func TestCreateGetListDelete(t *testing.T) {
	r := newTestRouter(t, "")

	w := do(t, r, http.MethodPost, "/api/v1/assessments", validBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := int64(created["id"].(float64))
	assert.Positive(t, id)
	assert.Equal(t, "Low", created["prediction"].(map[string]any)["label"])
	assert.Equal(t, "success", created["display"].(map[string]any)["severity"])

	path := "/api/v1/assessments/" + strconv.FormatInt(id, 10)
	w = do(t, r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(id), decode(t, w)["id"])

	w = do(t, r, http.MethodGet, "/api/v1/assessments", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = do(t, r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutReplacesAtID(t *testing.T) {
	r := newTestRouter(t, "")

	w := do(t, r, http.MethodPut, "/api/v1/assessments/7", validBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	madera := strings.Replace(validBody, `["Metal", "Hormigón"]`, `["Madera"]`, 1)
	w = do(t, r, http.MethodPut, "/api/v1/assessments/7", madera)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/assessments", "")
	list := decode(t, w)
	require.Equal(t, float64(1), list["count"])
	rec := list["data"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(7), rec["id"])
	assert.Equal(t, "High", rec["prediction"].(map[string]any)["label"])
}

func TestCreateWithID(t *testing.T) {
	r := newTestRouter(t, "")

	withID := func(id string) string {
		return strings.Replace(validBody, "{", `{"id": `+id+`,`, 1)
	}

	w := do(t, r, http.MethodPost, "/api/v1/assessments", withID("9"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/assessments", withID("9"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(9), decode(t, w)["id"])

	// zero and negative ids are auto-assigned
	w = do(t, r, http.MethodPost, "/api/v1/assessments", withID("-2"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Greater(t, decode(t, w)["id"].(float64), float64(9))

	w = do(t, r, http.MethodPost, "/api/v1/assessments", withID("9007199254740991"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/assessments", validBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Greater(t, decode(t, w)["id"].(float64), float64(9007199254740991))
}

func TestStatusMapping(t *testing.T) {
	r := newTestRouter(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, "/api/v1/assessments", `{"materials":`, http.StatusBadRequest},
		{"id above ceiling", http.MethodPost, "/api/v1/assessments", `{"id": 9007199254740992}`, http.StatusBadRequest},
		{"path id above ceiling", http.MethodPut, "/api/v1/assessments/9007199254740992", validBody, http.StatusBadRequest},
		{"bad path id", http.MethodGet, "/api/v1/assessments/abc", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/assessments?limit=0", "", http.StatusBadRequest},
		{"unknown code", http.MethodPost, "/api/v1/predict", strings.Replace(validBody, `"70"`, `"999"`, 1), http.StatusUnprocessableEntity},
		{"empty selection", http.MethodPost, "/api/v1/predict", strings.Replace(validBody, `["Metal", "Hormigón"]`, `[]`, 1), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestValidationErrorListsViolations(t *testing.T) {
	r := newTestRouter(t, "")
	body := `{"heat_source": "1", "materials": ["Vidrio"], "structural_status": "Bueno", "detector": "Y", "detector_type": "1", "area": -5}`

	w := do(t, r, http.MethodPost, "/api/v1/assessments", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	violations := decode(t, w)["violations"].([]any)
	assert.Len(t, violations, 3)
	assert.Equal(t, "area must be greater than 0", violations[2])
}

func TestPredictValidateExplain(t *testing.T) {
	r := newTestRouter(t, "")

	w := do(t, r, http.MethodPost, "/api/v1/predict", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	probs := decode(t, w)["prediction"].(map[string]any)["probabilities"].(map[string]any)
	assert.InDelta(t, 0.5, probs["low"], 1e-9)

	w = do(t, r, http.MethodPost, "/api/v1/validate", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["valid"])

	w = do(t, r, http.MethodPost, "/api/v1/explain", validBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["vector"], 17)

	// nothing was stored
	w = do(t, r, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["total"])
}

func TestReferenceEndpoints(t *testing.T) {
	r := newTestRouter(t, "")

	w := do(t, r, http.MethodGet, "/api/v1/vocabulary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "material")

	w = do(t, r, http.MethodGet, "/api/v1/model", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "random_forest", decode(t, w)["model_kind"])
}

func TestBearerAuth(t *testing.T) {
	r := newTestRouter(t, "s3cret")

	w := do(t, r, http.MethodGet, "/api/v1/model", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")

	w = do(t, r, http.MethodGet, "/api/v1/model", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/model", "", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, w.Code)

	// health and metrics stay open
	w = do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bib/pkg/auth"
	"github.com/bibbank/bib/services/churn-service/internal/application/dto"
	"github.com/bibbank/bib/services/churn-service/internal/application/usecase"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/messaging"
	"github.com/bibbank/bib/services/churn-service/internal/infrastructure/sqlite"
)

// stubScorer churns month-to-month contracts and requires tenure.
type stubScorer struct{}

func (stubScorer) PredictOne(rec feature.Record) (service.Decision, error) {
	if _, ok := rec[feature.ColTenure]; !ok {
		return service.Decision{}, &feature.MissingFeatureError{Column: feature.ColTenure}
	}
	if rec[feature.ColContract].String() == "Month-to-month" {
		return service.Decision{Label: service.LabelChurn, Probability: 0.83}, nil
	}
	return service.Decision{Label: service.LabelNotChurn, Probability: 0.12}, nil
}

func (stubScorer) Version() string { return "stub" }

const customerBody = `{
	"customerID": "7590-VHVEG",
	"gender": "Female", "SeniorCitizen": 0, "Partner": "Yes", "Dependents": "No",
	"tenure": 1, "PhoneService": "No", "MultipleLines": "No phone service",
	"InternetService": "DSL", "OnlineSecurity": "No", "OnlineBackup": "Yes",
	"DeviceProtection": "No", "TechSupport": "No", "StreamingTV": "No",
	"StreamingMovies": "No", "Contract": "Month-to-month", "PaperlessBilling": "Yes",
	"PaymentMethod": "Electronic check", "MonthlyCharges": 29.85, "TotalCharges": 29.85
}`

type testEnv struct {
	handler http.Handler
	jwt     *auth.JWTService
}

func newTestEnv(t *testing.T, withAuth bool, checks map[string]CheckFunc) testEnv {
	t.Helper()
	repo, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := RouterConfig{
		Churn: NewChurnHandler(
			usecase.NewPredictChurn(repo, messaging.NewLogPublisher(logger), stubScorer{}, nil, 0.7),
			usecase.NewGetPrediction(repo),
			usecase.NewListCustomerPredictions(repo),
			logger,
			withAuth,
		),
		Health: NewHealthHandler("churn-service", checks, logger),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "# metrics\n")
		}),
		Logger: logger,
	}

	env := testEnv{}
	if withAuth {
		env.jwt, err = auth.NewJWTService(auth.JWTConfig{Secret: "rest-test-secret", Issuer: "bib-identity", Expiration: time.Minute})
		require.NoError(t, err)
		cfg.Validator = env.jwt
	}
	env.handler = NewRouter(cfg)
	return env
}

func (e testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e testEnv) token(t *testing.T, roles ...string) string {
	t.Helper()
	tok, err := e.jwt.GenerateToken(uuid.New(), uuid.New(), roles)
	require.NoError(t, err)
	return tok
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Customer Churn Prediction API is running."}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredict(t *testing.T) {
	env := newTestEnv(t, false, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"churn", customerBody, http.StatusOK, `{"prediction":"Churn","probability":0.83}`},
		{"not churn", strings.Replace(customerBody, "Month-to-month", "Two year", 1), http.StatusOK, `{"prediction":"Not Churn","probability":0.12}`},
		{"extra fields ignored", strings.Replace(customerBody, `"gender"`, `"favouriteColour": "teal", "gender"`, 1), http.StatusOK, `{"prediction":"Churn","probability":0.83}`},
		{"missing tenure", strings.Replace(customerBody, `"tenure": 1,`, "", 1), http.StatusBadRequest, `{"error":"failed to score record: missing feature \"tenure\""}`},
		{"malformed json", `{"tenure":`, http.StatusBadRequest, ""},
		{"wrong type", `{"tenure": "one"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/predict", tt.body, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestPredict_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, false, nil)
	body := `{"customerID":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	rec := env.do(t, http.MethodPost, "/predict", body, "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPredictionHistory(t *testing.T) {
	env := newTestEnv(t, false, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/predictions", customerBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created dto.PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "/api/v1/predictions/"+created.ID.String(), rec.Header().Get("Location"))
	assert.Equal(t, "7590-VHVEG", created.CustomerID)
	assert.Equal(t, "HIGH", created.RiskBand)
	assert.Equal(t, "29.85", created.MonthlyCharges)

	rec = env.do(t, http.MethodGet, "/api/v1/predictions/"+created.ID.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Churn", got.Prediction)

	rec = env.do(t, http.MethodPost, "/predict", strings.Replace(customerBody, "Month-to-month", "One year", 1), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/customers/7590-VHVEG/predictions?limit=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page dto.PredictionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Predictions, 1)
	assert.Equal(t, "Not Churn", page.Predictions[0].Prediction)

	rec = env.do(t, http.MethodGet, "/api/v1/customers/7590-VHVEG/predictions", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Predictions, 2)

	rec = env.do(t, http.MethodGet, "/api/v1/customers/unknown/predictions", "", "")
	assert.JSONEq(t, `{"predictions":[],"limit":20,"offset":0}`, rec.Body.String())
}

func TestGetPrediction_Errors(t *testing.T) {
	env := newTestEnv(t, false, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"malformed id", "/api/v1/predictions/not-a-uuid", http.StatusBadRequest},
		{"nil id", "/api/v1/predictions/" + uuid.Nil.String(), http.StatusBadRequest},
		{"unknown id", "/api/v1/predictions/" + uuid.NewString(), http.StatusNotFound},
		{"bad limit", "/api/v1/customers/c-1/predictions?limit=ten", http.StatusBadRequest},
		{"bad offset", "/api/v1/customers/c-1/predictions?offset=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, true, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"root is public", http.MethodGet, "/", "", "", http.StatusOK},
		{"health is public", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"predict needs token", http.MethodPost, "/predict", customerBody, "", http.StatusUnauthorized},
		{"predict with bad token", http.MethodPost, "/predict", customerBody, "junk", http.StatusUnauthorized},
		{"auditor cannot predict", http.MethodPost, "/predict", customerBody, env.token(t, auth.RoleAuditor), http.StatusForbidden},
		{"api client can predict", http.MethodPost, "/predict", customerBody, env.token(t, auth.RoleAPIClient), http.StatusOK},
		{"api client cannot read history", http.MethodGet, "/api/v1/customers/c-1/predictions", "", env.token(t, auth.RoleAPIClient), http.StatusForbidden},
		{"auditor can read history", http.MethodGet, "/api/v1/customers/c-1/predictions", "", env.token(t, auth.RoleAuditor), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		env := newTestEnv(t, false, map[string]CheckFunc{
			"model":    func(context.Context) error { return nil },
			"database": func(context.Context) error { return nil },
		})
		rec := env.do(t, http.MethodGet, "/readyz", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready","service":"churn-service","checks":{"model":"ok","database":"ok"}}`, rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		env := newTestEnv(t, false, map[string]CheckFunc{
			"database": func(context.Context) error { return errors.New("connection refused") },
		})
		rec := env.do(t, http.MethodGet, "/readyz", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"not ready","service":"churn-service","checks":{"database":"connection refused"}}`, rec.Body.String())
	})

	t.Run("liveness", func(t *testing.T) {
		env := newTestEnv(t, false, nil)
		rec := env.do(t, http.MethodGet, "/healthz", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"stock-movement-service/internal/config"
	"stock-movement-service/internal/middleware"
	"stock-movement-service/internal/models"
	"stock-movement-service/internal/repository"
	"stock-movement-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const basePath = "/api/v1/internal/stock-movement"

func newRouter(svc services.MovementService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	h := NewMovementHandler(svc, logger)

	router := gin.New()
	group := router.Group(basePath)
	group.Use(middleware.CredentialMiddleware(config.IdentityConfig{
		DefaultAccountID:     1,
		DefaultUserID:        1,
		TrustIdentityHeaders: true,
	}, logger))
	group.GET("", h.ListMovements)
	group.POST("", h.CreateMovement)
	group.GET("/:id", h.GetMovement)
	group.POST("/:id/reverse", h.ReverseMovement)
	return router
}

func newMemoryRouter() *gin.Engine {
	engine := repository.NewMemoryEngine(
		repository.WithProduct(models.Product{IDProduct: 10, IDAccount: 1, Name: "Widget", Sku: "W-10"}),
		repository.WithProduct(models.Product{IDProduct: 20, IDAccount: 2, Name: "Gadget", Sku: "G-20"}),
	)
	return newRouter(services.NewMovementService(engine, nil, nil, zap.NewNop()))
}

type envelope struct {
	Success  bool                   `json:"success"`
	Data     map[string]interface{} `json:"data"`
	Metadata struct {
		Timestamp string `json:"timestamp"`
	} `json:"metadata"`
	Error struct {
		Message string              `json:"message"`
		Details []models.FieldError `json:"details"`
	} `json:"error"`
	Code string `json:"code"`
}

func do(t *testing.T, router *gin.Engine, method, path, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func idOf(t *testing.T, env envelope, key string) string {
	t.Helper()
	raw, ok := env.Data[key].(float64)
	require.True(t, ok, "falta %s en %v", key, env.Data)
	return strconv.FormatInt(int64(raw), 10)
}

func TestMovementLifecycle(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodPost, basePath, `{"idProduct":10,"movementType":1,"quantity":5}`, nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Metadata.Timestamp)
	id := idOf(t, env, "idStockMovement")

	code, env = do(t, router, http.MethodGet, basePath+"/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), env.Data["quantity"])
	assert.Equal(t, "Entry", env.Data["movementTypeName"])
	assert.Equal(t, "Widget", env.Data["productName"])
	assert.Equal(t, false, env.Data["hasBeenReversed"])
	assert.Nil(t, env.Data["reason"])

	code, env = do(t, router, http.MethodPost, basePath+"/"+id+"/reverse", `{"reason":"correction"}`, nil)
	require.Equal(t, http.StatusOK, code)
	reversalID := idOf(t, env, "idReversalMovement")

	code, env = do(t, router, http.MethodGet, basePath+"/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env.Data["hasBeenReversed"])

	code, env = do(t, router, http.MethodGet, basePath+"/"+reversalID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(-5), env.Data["quantity"])
	assert.Equal(t, true, env.Data["isReversal"])
	assert.Equal(t, "correction", env.Data["reason"])

	code, env = do(t, router, http.MethodPost, basePath+"/"+id+"/reverse", `{"reason":"again"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, repository.MsgAlreadyReversed, env.Error.Message)

	code, env = do(t, router, http.MethodGet, basePath+"?pageSize=10", "", nil)
	require.Equal(t, http.StatusOK, code)
	movements, ok := env.Data["movements"].([]interface{})
	require.True(t, ok)
	assert.Len(t, movements, 2)
	pagination := env.Data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["totalRecords"])
	assert.Equal(t, float64(10), pagination["pageSize"])
	assert.Equal(t, float64(1), pagination["totalPages"])
}

func TestListRejectsPageSizeOutOfRange(t *testing.T) {
	router := newMemoryRouter()

	for _, size := range []string{"0", "1001"} {
		code, env := do(t, router, http.MethodGet, basePath+"?pageSize="+size, "", nil)
		assert.Equal(t, http.StatusBadRequest, code, "pageSize %s", size)
		assert.Equal(t, "Validation failed", env.Error.Message)
		require.Len(t, env.Error.Details, 1)
		assert.Equal(t, "pageSize", env.Error.Details[0].Field)
	}
}

func TestListHugePageNumberReturnsEmptyPage(t *testing.T) {
	router := newMemoryRouter()

	code, _ := do(t, router, http.MethodPost, basePath, `{"idProduct":10,"movementType":1,"quantity":5}`, nil)
	require.Equal(t, http.StatusOK, code)

	for _, query := range []string{
		"?pageNumber=2",
		"?pageNumber=4611686018427387904",
		"?pageNumber=9223372036854775807&pageSize=1000",
	} {
		code, env := do(t, router, http.MethodGet, basePath+query, "", nil)
		require.Equal(t, http.StatusOK, code, query)
		movements, ok := env.Data["movements"].([]interface{})
		require.True(t, ok, query)
		assert.Empty(t, movements, query)
		pagination := env.Data["pagination"].(map[string]interface{})
		assert.Equal(t, float64(1), pagination["totalRecords"], query)
		assert.Equal(t, float64(1), pagination["totalPages"], query)
	}
}

func TestListEmptyAccountReturnsEmptyArray(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodGet, basePath, "", nil)
	require.Equal(t, http.StatusOK, code)
	movements, ok := env.Data["movements"].([]interface{})
	require.True(t, ok, "movements debe ser un arreglo, no null")
	assert.Empty(t, movements)
}

func TestCreateAdjustmentWithoutReasonIsValidationError(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodPost, basePath, `{"idProduct":10,"movementType":3,"quantity":-1}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation failed", env.Error.Message)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "reason", env.Error.Details[0].Field)
}

func TestCreateRejectsQuantityBeyondLedgerPrecision(t *testing.T) {
	router := newMemoryRouter()

	for _, body := range []string{
		`{"idProduct":10,"movementType":1,"quantity":0.00001}`,
		`{"idProduct":10,"movementType":1,"quantity":100000000000000}`,
	} {
		code, env := do(t, router, http.MethodPost, basePath, body, nil)
		assert.Equal(t, http.StatusBadRequest, code, body)
		require.Len(t, env.Error.Details, 1, body)
		assert.Equal(t, "quantity", env.Error.Details[0].Field)
	}
}

func TestCreateRejectsNumericReason(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodPost, basePath, `{"idProduct":10,"movementType":3,"quantity":2,"reason":123}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "reason", env.Error.Details[0].Field)
}

func TestCreateBusinessRuleRejection(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodPost, basePath, `{"idProduct":10,"movementType":2,"quantity":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, repository.MsgInsufficientStock, env.Error.Message)
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodPost, basePath, `{"idProduct":`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation failed", env.Error.Message)
}

func TestGetOtherAccountIsNotFound(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodPost, basePath, `{"idProduct":10,"movementType":1,"quantity":5}`, nil)
	require.Equal(t, http.StatusOK, code)
	id := idOf(t, env, "idStockMovement")

	code, env = do(t, router, http.MethodGet, basePath+"/"+id, "", map[string]string{
		middleware.HeaderAccountID: "2",
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Stock movement not found", env.Error.Message)

	code, _ = do(t, router, http.MethodGet, basePath+"/999", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetRejectsInvalidID(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodGet, basePath+"/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "id", env.Error.Details[0].Field)
}

func TestInvalidIdentityHeaderIsRejected(t *testing.T) {
	router := newMemoryRouter()

	code, env := do(t, router, http.MethodGet, basePath, "", map[string]string{
		middleware.HeaderUserID: "zero",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid X-User-ID header", env.Error.Message)
}

// failingService falla siempre con un error no reconocido
type failingService struct{ err error }

func (s failingService) Create(ctx context.Context, cred models.Credential, req *models.CreateMovementRequest) (*models.CreateMovementResponse, error) {
	return nil, s.err
}

func (s failingService) List(ctx context.Context, cred models.Credential, req *models.ListMovementsRequest) (*models.ListMovementsResponse, error) {
	return nil, s.err
}

func (s failingService) Get(ctx context.Context, cred models.Credential, id int64) (*models.StockMovementDetail, error) {
	return nil, s.err
}

func (s failingService) Reverse(ctx context.Context, cred models.Credential, id int64, reason string) (*models.ReverseMovementResponse, error) {
	return nil, s.err
}

func TestUnexpectedErrorReturnsGeneralError(t *testing.T) {
	router := newRouter(failingService{err: errors.New("pq: connection refused")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, basePath+"/1", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"statusCode":500,"code":"GENERAL_ERROR","message":"An unexpected error occurred"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

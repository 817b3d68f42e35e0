package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stock-movement-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldsOf devuelve los campos inválidos reportados por err
func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	verr, ok := models.IsValidation(err)
	require.True(t, ok, "se esperaba un ValidationError, se obtuvo %v", err)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	return fields
}

func TestDecodeCreateCoercesStrings(t *testing.T) {
	v := New()

	var req models.CreateMovementRequest
	err := v.Decode(Bag{
		"idProduct":    "10",
		"movementType": "1",
		"quantity":     "5.25",
		"lot":          "L-1",
	}, &req)
	require.NoError(t, err)

	assert.Equal(t, int64(10), req.IDProduct)
	require.NotNil(t, req.MovementType)
	assert.Equal(t, models.MovementEntry, *req.MovementType)
	require.NotNil(t, req.Quantity)
	assert.True(t, decimal.RequireFromString("5.25").Equal(*req.Quantity))
	require.NotNil(t, req.Lot)
	assert.Equal(t, "L-1", *req.Lot)
	assert.Nil(t, req.Reason)
}

func TestDecodeCreateAcceptsJSONNumbers(t *testing.T) {
	v := New()

	var req models.CreateMovementRequest
	err := v.Decode(Bag{
		"idProduct":    json.Number("3"),
		"movementType": json.Number("3"),
		"quantity":     json.Number("-2"),
		"reason":       "cycle count",
	}, &req)
	require.NoError(t, err)

	assert.Equal(t, models.MovementAdjustment, *req.MovementType)
	assert.True(t, decimal.NewFromInt(-2).Equal(*req.Quantity))
}

func TestDecodeCreateExplicitNullLeavesFieldUnset(t *testing.T) {
	v := New()

	var req models.CreateMovementRequest
	err := v.Decode(Bag{
		"idProduct":      1,
		"movementType":   1,
		"quantity":       1,
		"reason":         nil,
		"expirationDate": nil,
	}, &req)
	require.NoError(t, err)
	assert.Nil(t, req.Reason)
	assert.Nil(t, req.ExpirationDate)
}

func TestDecodeCreateAdjustmentRequiresReason(t *testing.T) {
	v := New()

	for name, reason := range map[string]interface{}{
		"ausente": nil,
		"vacío":   "",
		"blancos": "   ",
	} {
		t.Run(name, func(t *testing.T) {
			bag := Bag{"idProduct": 1, "movementType": 3, "quantity": 4}
			if reason != nil {
				bag["reason"] = reason
			}

			var req models.CreateMovementRequest
			err := v.Decode(bag, &req)
			assert.Equal(t, []string{"reason"}, fieldsOf(t, err))
		})
	}
}

func TestDecodeCreateRejectsOutOfRangeMovementType(t *testing.T) {
	v := New()

	for _, value := range []interface{}{5, -1, "9"} {
		var req models.CreateMovementRequest
		err := v.Decode(Bag{"idProduct": 1, "movementType": value, "quantity": 1}, &req)
		assert.Contains(t, fieldsOf(t, err), "movementType", "valor %v", value)
	}
}

func TestDecodeCreateReportsEveryInvalidField(t *testing.T) {
	v := New()

	var req models.CreateMovementRequest
	err := v.Decode(Bag{
		"idProduct":         "abc",
		"referenceDocument": strings.Repeat("x", 51),
		"expirationDate":    "31/12/2024",
	}, &req)

	fields := fieldsOf(t, err)
	assert.ElementsMatch(t, []string{
		"idProduct", "movementType", "quantity", "referenceDocument", "expirationDate",
	}, fields)
}

func TestDecodeCreateRejectsUnparsableQuantity(t *testing.T) {
	v := New()

	var req models.CreateMovementRequest
	err := v.Decode(Bag{"idProduct": 1, "movementType": 1, "quantity": "five"}, &req)
	assert.Contains(t, fieldsOf(t, err), "quantity")
}

func TestDecodeCreateQuantityMustFitLedger(t *testing.T) {
	v := New()

	for _, value := range []interface{}{"0.00001", json.Number("1e14"), "-123456789012345", 0.12345} {
		var req models.CreateMovementRequest
		err := v.Decode(Bag{"idProduct": 1, "movementType": 1, "quantity": value}, &req)
		verr, ok := models.IsValidation(err)
		require.True(t, ok, "valor %v", value)
		require.Len(t, verr.Fields, 1, "valor %v", value)
		assert.Equal(t, "quantity", verr.Fields[0].Field)
		assert.Equal(t, models.QuantityRangeMessage, verr.Fields[0].Message)
	}

	for _, value := range []interface{}{"1.50000", json.Number("99999999999999.9999")} {
		var req models.CreateMovementRequest
		err := v.Decode(Bag{"idProduct": 1, "movementType": 1, "quantity": value}, &req)
		assert.NoError(t, err, "valor %v", value)
	}
}

func TestDecodeCreateTextFieldsRejectNumbers(t *testing.T) {
	v := New()

	var req models.CreateMovementRequest
	err := v.Decode(Bag{
		"idProduct":         1,
		"movementType":      3,
		"quantity":          "-1",
		"reason":            json.Number("123"),
		"lot":               5,
		"referenceDocument": true,
	}, &req)

	assert.ElementsMatch(t, []string{"reason", "lot", "referenceDocument"}, fieldsOf(t, err))
	assert.Nil(t, req.Lot)
}

func TestDecodeListPageSizeBounds(t *testing.T) {
	v := New()

	cases := []struct {
		pageSize string
		valid    bool
	}{
		{"0", false},
		{"1", true},
		{"1000", true},
		{"1001", false},
	}

	for _, tc := range cases {
		var req models.ListMovementsRequest
		err := v.Decode(Bag{"pageSize": tc.pageSize}, &req)
		if tc.valid {
			assert.NoError(t, err, "pageSize %s", tc.pageSize)
			continue
		}
		assert.Equal(t, []string{"pageSize"}, fieldsOf(t, err), "pageSize %s", tc.pageSize)
	}
}

func TestDecodeListFilters(t *testing.T) {
	v := New()

	var req models.ListMovementsRequest
	err := v.Decode(Bag{
		"idProduct":    "4",
		"startDate":    "2024-01-01",
		"endDate":      "2024-01-31T00:00:00Z",
		"movementType": "2",
		"sortOrder":    "product_asc",
		"pageNumber":   "3",
	}, &req)
	require.NoError(t, err)

	assert.Equal(t, int64(4), *req.IDProduct)
	assert.Equal(t, models.MovementExit, *req.MovementType)
	assert.Equal(t, "product_asc", *req.SortOrder)
	assert.Equal(t, 3, *req.PageNumber)
	assert.Nil(t, req.PageSize)
}

func TestDecodeListRejectsUnknownSortAndBadPage(t *testing.T) {
	v := New()

	var req models.ListMovementsRequest
	err := v.Decode(Bag{"sortOrder": "random", "pageNumber": "0", "idUser": "-3"}, &req)
	assert.ElementsMatch(t, []string{"sortOrder", "pageNumber", "idUser"}, fieldsOf(t, err))
}

func TestDecodeReverseRequiresReason(t *testing.T) {
	v := New()

	var req models.ReverseMovementRequest
	err := v.Decode(Bag{"id": "12"}, &req)
	assert.Equal(t, []string{"reason"}, fieldsOf(t, err))
	assert.Equal(t, int64(12), req.ID)

	req = models.ReverseMovementRequest{}
	err = v.Decode(Bag{"id": "12", "reason": strings.Repeat("r", 256)}, &req)
	assert.Equal(t, []string{"reason"}, fieldsOf(t, err))
}

func TestDecodeGetRejectsNonPositiveID(t *testing.T) {
	v := New()

	for _, id := range []string{"0", "-1", "x"} {
		var req models.GetMovementRequest
		err := v.Decode(Bag{"id": id}, &req)
		assert.Equal(t, []string{"id"}, fieldsOf(t, err), "id %s", id)
	}
}

func TestFromGinMergesParamsQueryAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	body := `{"reason":"from body","quantity":2.5}`
	req := httptest.NewRequest(http.MethodPost, "/stock-movement/9/reverse?reason=from+query&lot=L9&empty=", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "9"}}

	bag, err := FromGin(c)
	require.NoError(t, err)

	assert.Equal(t, "9", bag["id"])
	assert.Equal(t, "from body", bag["reason"])
	assert.Equal(t, "L9", bag["lot"])
	assert.Equal(t, json.Number("2.5"), bag["quantity"])
	_, hasEmpty := bag["empty"]
	assert.False(t, hasEmpty)
}

func TestFromGinRejectsNonObjectBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest(http.MethodPost, "/stock-movement", strings.NewReader(`[1,2,3]`))
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	_, err := FromGin(c)
	assert.Equal(t, []string{"body"}, fieldsOf(t, err))
}

func TestFromGinIgnoresBodyOnGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest(http.MethodGet, "/stock-movement?pageSize=10", strings.NewReader(`not json`))
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req

	bag, err := FromGin(c)
	require.NoError(t, err)
	assert.Equal(t, Bag{"pageSize": "10"}, bag)
}

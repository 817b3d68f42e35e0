package validation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"stock-movement-service/internal/models"

	"github.com/gin-gonic/gin"
)

// Bag parámetros crudos de un request: path, query y body fusionados.
// Ante claves repetidas gana la última fuente fusionada (body).
type Bag map[string]interface{}

// Merge copia las claves de other sobre el bag
func (b Bag) Merge(other map[string]interface{}) Bag {
	for k, v := range other {
		b[k] = v
	}
	return b
}

// FromGin arma el bag de un request gin. Los valores de query vacíos se
// tratan como ausentes. Un body que no sea un objeto JSON es un error de validación.
func FromGin(c *gin.Context) (Bag, error) {
	bag := Bag{}

	for _, p := range c.Params {
		bag[p.Key] = p.Value
	}

	for key, values := range c.Request.URL.Query() {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		bag[key] = values[0]
	}

	body, err := readBody(c.Request)
	if err != nil {
		return nil, err
	}
	return bag.Merge(body), nil
}

func readBody(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil || r.Method == http.MethodGet {
		return nil, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, invalidBody()
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var body map[string]interface{}
	if err := decoder.Decode(&body); err != nil {
		return nil, invalidBody()
	}
	return body, nil
}

func invalidBody() error {
	verr := &models.ValidationError{}
	verr.Add("body", "must be a JSON object")
	return verr
}

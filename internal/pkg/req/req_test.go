package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatify/internal/pkg/errs"
)

type payload struct {
	Name string `json:"name"`
}

func bind(body, contentType string) (payload, *errs.CustomError) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}

	var p payload
	return p, BindJSON(httptest.NewRecorder(), r, &p)
}

func TestBindJSON_Lenient(t *testing.T) {
	for _, contentType := range []string{"application/json", "text/plain", ""} {
		p, err := bind(`{"name":"bob","extra":{"ignored":true}}`, contentType)
		require.Nil(t, err, contentType)
		assert.Equal(t, "bob", p.Name)
	}
}

func TestBindJSON_Rejects(t *testing.T) {
	_, err := bind(`{"name":`, "")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrInvalidJSONFormat, err.Code)

	_, err = bind(`{"name":"a"} {"name":"b"}`, "")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrExtraContentInBody, err.Code)

	_, err = bind(`{"name":"`+strings.Repeat("x", int(MaxJSONBodySize))+`"}`, "")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrRequestEntityTooLarge, err.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, err.Status)
}

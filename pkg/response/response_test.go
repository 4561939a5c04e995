package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func run(fn gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	fn(c)
	return rec
}

func TestSuccess(t *testing.T) {
	rec := run(func(c *gin.Context) { Success(c, gin.H{"n": 1}) })
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	cases := []struct {
		fn   gin.HandlerFunc
		code int
		name string
	}{
		{func(c *gin.Context) { BadRequest(c, "m") }, http.StatusBadRequest, "BAD_REQUEST"},
		{func(c *gin.Context) { NotFound(c, "m") }, http.StatusNotFound, "NOT_FOUND"},
		{func(c *gin.Context) { InternalError(c, "m") }, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{func(c *gin.Context) { ServiceUnavailable(c, "m") }, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}
	for _, tc := range cases {
		rec := run(tc.fn)
		assert.Equal(t, tc.code, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":{"code":"`+tc.name+`","message":"m"}}`, rec.Body.String())
	}
}

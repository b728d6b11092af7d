package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	p := NewPage([]string{"a", "b"}, 2, 5, 2, 0)
	assert.True(t, p.Pagination.HasMore)
	assert.Equal(t, 5, p.Pagination.Total)

	p = NewPage([]string{"e"}, 1, 5, 2, 4)
	assert.False(t, p.Pagination.HasMore)
}

func TestAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Attachment(c, "patients_template.csv", "text/csv", []byte("name,phone\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="patients_template.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "name,phone\n", w.Body.String())
}

package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the success shape: {ok:true, resultado:...}.
type Envelope struct {
	OK        bool        `json:"ok"`
	Resultado interface{} `json:"resultado,omitempty"`
}

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK wraps resultado in the success envelope.
func OK(c *gin.Context, resultado interface{}) {
	JSON(c, http.StatusOK, Envelope{OK: true, Resultado: resultado})
}

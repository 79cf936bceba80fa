package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeMissingFields      = 40001
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeTokenMissing       = 40102
	CodeTokenInvalid       = 40103
	CodeTokenExpired       = 40104
	CodeTokenUnavailable   = 40105
	CodeUserNotFound       = 40401
	CodeProjectNotFound    = 40402
	CodeTaskNotFound       = 40403
	CodeUsernameExists     = 40901
	CodeTooManyRequests    = 42900
	CodeInternalServer     = 50000
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	OKWithMessage(c, "ok", data)
}

func OKWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Abort writes the error and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

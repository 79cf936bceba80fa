package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"tasktracker/internal/app"
	"tasktracker/internal/storage"
	"tasktracker/internal/transport/http/middleware"
	"tasktracker/internal/transport/http/response"
)

const (
	MessageCredentialsMismatch = "These credentials don't match our records!"
	MessageLoginMandatory      = "Username and password are mandatory!"
	MessageRegisterMandatory   = "Fill all of those credentials!"
	MessageUserExists          = "User already defined!"
	MessageUpdated             = "Updated!"
	MessageUserDeleted         = "User successfully deleted!"
)

type AccountHandler struct {
	authService *app.AuthService
}

// ChangeCredentialsRequest is the JSON form of a profile update. Nil fields
// were not sent.
type ChangeCredentialsRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Email    *string `json:"email"`
	Name     *string `json:"name"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func NewAccountHandler(authService *app.AuthService) *AccountHandler {
	return &AccountHandler{authService: authService}
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(app.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingFields):
			response.Error(c, http.StatusBadRequest, response.CodeMissingFields, MessageLoginMandatory)
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, MessageCredentialsMismatch)
		default:
			internalError(c, "login failed", err)
		}
		return
	}

	response.OK(c, gin.H{"access_token": result.Token})
}

func (h *AccountHandler) Register(c *gin.Context) {
	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
		Email:    c.PostForm("email"),
		Name:     c.PostForm("name"),
		Avatar:   formFile(c, "avatar"),
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingFields):
			response.Error(c, http.StatusBadRequest, response.CodeMissingFields, MessageRegisterMandatory)
		case errors.Is(err, app.ErrUsernameExists):
			response.Error(c, http.StatusConflict, response.CodeUsernameExists, MessageUserExists)
		case errors.Is(err, storage.ErrAvatarTooLarge):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "Avatar file is too large!")
		default:
			internalError(c, "register failed", err)
		}
		return
	}

	response.OK(c, gin.H{"access_token": result.Token})
}

func (h *AccountHandler) GetCredentials(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	response.OK(c, h.authService.Credentials(claims))
}

func (h *AccountHandler) ChangeCredentials(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	patch, ok := credentialsPatch(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.UpdateCredentials(c.Request.Context(), claims, patch)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "Username and password cannot be empty!")
		case errors.Is(err, app.ErrUsernameExists):
			response.Error(c, http.StatusConflict, response.CodeUsernameExists, MessageUserExists)
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
		case errors.Is(err, storage.ErrAvatarTooLarge):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "Avatar file is too large!")
		default:
			internalError(c, "change credentials failed", err)
		}
		return
	}

	response.OKWithMessage(c, MessageUpdated, gin.H{
		"user":         result.User,
		"access_token": result.Token,
	})
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), claims); err != nil {
		switch {
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
		default:
			internalError(c, "delete account failed", err)
		}
		return
	}

	response.OKWithMessage(c, MessageUserDeleted, nil)
}

// credentialsPatch reads a JSON body or a multipart/urlencoded form. Only a
// form can carry an avatar file.
func credentialsPatch(c *gin.Context) (app.UserPatch, bool) {
	if c.ContentType() == binding.MIMEJSON {
		var req ChangeCredentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return app.UserPatch{}, false
		}
		return app.UserPatch{
			Username: req.Username,
			Password: req.Password,
			Email:    req.Email,
			Name:     req.Name,
		}, true
	}

	return app.UserPatch{
		Username: optionalForm(c, "username"),
		Password: optionalForm(c, "password"),
		Email:    optionalForm(c, "email"),
		Name:     optionalForm(c, "name"),
		Avatar:   formFile(c, "avatar"),
	}, true
}

// optionalForm distinguishes an absent form field from one sent empty.
func optionalForm(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &value
}

func formFile(c *gin.Context, key string) *multipart.FileHeader {
	file, err := c.FormFile(key)
	if err != nil {
		return nil
	}
	return file
}

func internalError(c *gin.Context, message string, err error) {
	slog.Error(message, "method", c.Request.Method, "path", c.FullPath(), "error", err)
	response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, message)
}

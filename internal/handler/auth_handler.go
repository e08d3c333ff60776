package handler

import (
	"errors"
	"net/http"

	"github.com/daysofyou/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register 处理注册请求，成功后直接建立会话
func (a *API) Register(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "username and password are required") {
		return
	}

	user, err := a.users.Register(payload.Username, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			respondError(c, http.StatusBadRequest, "username and password are required")
		case errors.Is(err, service.ErrUsernameTaken):
			respondError(c, http.StatusConflict, "username is already taken")
		default:
			respondError(c, http.StatusInternalServerError, "could not create account")
		}
		return
	}

	if err := startSession(c, user.ID, user.Username); err != nil {
		respondError(c, http.StatusInternalServerError, "could not save session")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login 处理登录请求
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "username and password are required") {
		return
	}

	user, err := a.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "invalid username or password")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not log in")
		return
	}

	if err := startSession(c, user.ID, user.Username); err != nil {
		respondError(c, http.StatusInternalServerError, "could not save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "could not clear session")
		return
	}
	c.Status(http.StatusNoContent)
}

// Me 返回当前登录用户
func (a *API) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := a.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusUnauthorized, "not authenticated")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not load account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func startSession(c *gin.Context, userID, username string) error {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, userID)
	session.Set("username", username)
	return session.Save()
}

// AuthRequired 是一个简单的认证中间件，未登录的 API 请求直接 401
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUserID(c) == "" {
			respondError(c, http.StatusUnauthorized, "not authenticated")
			c.Abort()
			return
		}
		c.Next()
	}
}

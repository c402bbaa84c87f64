package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authApp "storefront/internal/application/auth"
	sessionApp "storefront/internal/application/session"
	authDomain "storefront/internal/domain/auth"
)

// userPayload 對前端公開的使用者欄位，也是 session 儲存中的序列化格式。
type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func toUserPayload(u authDomain.User) userPayload {
	return userPayload{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	res, err := s.loginUC.Execute(c.Request.Context(), authApp.LoginInput{
		Email:     body.Email,
		Password:  body.Password,
		UserAgent: c.GetHeader("User-Agent"),
		IP:        clientIP(c),
	})
	if err != nil {
		log.Printf("[Auth] login failure for %s: %v", body.Email, err)
		respondError(c, http.StatusUnauthorized, errCodeInvalidCredentials, "invalid email or password")
		return
	}

	s.finishLogin(c, res)
}

// finishLogin 簽發 cookie、開啟 session 追蹤並輸出登入回應。
// 登入與 OAuth 流程共用。
func (s *Server) finishLogin(c *gin.Context, res authApp.LoginResult) {
	payload := toUserPayload(res.User)
	userJSON, err := json.Marshal(payload)
	if err != nil {
		respondError(c, http.StatusInternalServerError, errCodeInternal, "encode user")
		return
	}

	sessionID, err := s.sessions.Open(c.Request.Context(), sessionApp.Credentials{
		UserJSON: string(userJSON),
		UserID:   res.User.ID,
		Token:    res.Token.AccessToken,
	})
	if err != nil {
		log.Printf("[Auth] open session failed user_id=%s err=%v", res.User.ID, err)
		respondError(c, http.StatusInternalServerError, errCodeInternal, "session setup failed")
		return
	}

	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"user":         payload,
		"session_id":   sessionID,
		"access_token": res.Token.AccessToken,
		"token_type":   "Bearer",
		"expiry":       res.Token.AccessExpiry.Format(time.RFC3339),
	})
}

func (s *Server) handleRegister(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "invalid body")
		return
	}

	user, err := s.registerUC.Execute(c.Request.Context(), authApp.RegisterInput{
		Email:    body.Email,
		Name:     body.Name,
		Password: body.Password,
	})
	if err != nil {
		if errors.Is(err, authApp.ErrEmailTaken) {
			respondError(c, http.StatusConflict, errCodeConflict, "email already registered")
			return
		}
		respondError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": toUserPayload(user)})
}

func (s *Server) handleTokenRefresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil {
		respondError(c, http.StatusUnauthorized, errCodeUnauthorized, "refresh token missing")
		return
	}

	pair, err := s.tokenSvc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, errCodeUnauthorized, "invalid refresh token")
		return
	}

	s.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiry)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": pair.AccessToken,
		"token_type":   "Bearer",
		"expiry":       pair.AccessExpiry.Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshCookieName)
	if refreshToken != "" {
		_ = s.logoutUC.Execute(c.Request.Context(), refreshToken)
	}
	// 附帶 session ID 時一併卸除追蹤實例。
	if id := sessionID(c); id != "" {
		s.sessions.Close(c.Request.Context(), id)
		s.csrf.Drop(id)
	}

	s.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handlePasswordForgot(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "email required")
		return
	}

	// 一律回 200，避免探測帳號存在與否。
	if err := s.resetUC.Request(c.Request.Context(), body.Email); err != nil {
		log.Printf("[Auth] password reset request failed email=%s err=%v", body.Email, err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handlePasswordReset(c *gin.Context) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Token == "" {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "token and password required")
		return
	}

	if err := s.resetUC.Confirm(c.Request.Context(), body.Token, body.Password); err != nil {
		if errors.Is(err, authApp.ErrResetTokenInvalid) {
			respondError(c, http.StatusBadRequest, errCodeBadRequest, "reset token invalid or expired")
			return
		}
		respondError(c, http.StatusBadRequest, errCodeBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleOAuth(c *gin.Context) {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Code == "" {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "authorization code required")
		return
	}

	res, err := s.oauthUC.Execute(c.Request.Context(), authApp.OAuthInput{
		Provider:  authDomain.Provider(c.Param("provider")),
		Code:      body.Code,
		UserAgent: c.GetHeader("User-Agent"),
		IP:        clientIP(c),
	})
	if err != nil {
		if errors.Is(err, authApp.ErrUnsupportedProvider) {
			respondError(c, http.StatusBadRequest, errCodeBadRequest, "unsupported oauth provider")
			return
		}
		log.Printf("[Auth] oauth login failure provider=%s err=%v", c.Param("provider"), err)
		respondError(c, http.StatusUnauthorized, errCodeInvalidCredentials, "oauth login failed")
		return
	}

	s.finishLogin(c, res)
}

// handleCSRFToken 核發以 session 為範圍的 CSRF token。
func (s *Server) handleCSRFToken(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "session id required")
		return
	}
	if _, err := s.sessions.Get(id); err != nil {
		respondError(c, http.StatusNotFound, errCodeSessionUnknown, "unknown session")
		return
	}
	token, err := s.csrf.Get(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, errCodeInternal, "csrf token generation failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "csrf_token": token})
}

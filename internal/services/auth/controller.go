package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/domain/principal"
)

type CookieOpts struct {
	Name   string
	Domain string
	Path   string
	Secure bool
}

// Controller is the HTTP boundary. It owns the error-kind → status mapping
// and the refresh cookie; everything stateful lives in the usecase.
type Controller struct {
	log        *zap.Logger
	uc         *Usecase
	cookie     CookieOpts
	refreshTTL time.Duration
}

func NewController(log *zap.Logger, uc *Usecase, cookie CookieOpts, refreshTTL time.Duration) *Controller {
	return &Controller{log: log, uc: uc, cookie: cookie, refreshTTL: refreshTTL}
}

// Routes mounts the auth surface. The admission middleware fronts only the
// credential-processing endpoints; the gate fronts everything that needs an
// authenticated subject.
func (ct *Controller) Routes(r *gin.RouterGroup, admission gin.HandlerFunc) {
	gate := Gate(ct.uc.VerifyAccess, ct.log)

	g := r.Group("/auth")
	g.POST("/register", ct.register)
	g.POST("/login", admission, ct.login)
	g.POST("/refresh", admission, ct.refresh)
	g.POST("/logout", ct.logout)
	g.POST("/change-password", gate, ct.changePassword)
	g.POST("/deactivate", gate, ct.deactivate)
	g.GET("/me", gate, ct.me)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type principalResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toPrincipalResponse(p *principal.Principal) principalResponse {
	return principalResponse{
		ID:        p.ID.String(),
		Email:     p.Email,
		FullName:  p.FullName,
		CreatedAt: p.CreatedAt,
	}
}

func toTokenResponse(pair *TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}
}

func (ct *Controller) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ct.log.Info("auth.register", zap.String("request_id", RequestID(c)))

	p, err := ct.uc.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPrincipalResponse(p))
}

func (ct *Controller) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ct.log.Info("auth.login", zap.String("request_id", RequestID(c)))

	pair, _, err := ct.uc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		ct.mapErr(c, err)
		return
	}

	ct.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (ct *Controller) refresh(c *gin.Context) {
	raw := ct.refreshTokenFrom(c)

	ct.log.Info("auth.refresh", zap.String("request_id", RequestID(c)))

	pair, _, err := ct.uc.Refresh(c.Request.Context(), raw)
	if err != nil {
		ct.clearRefreshCookie(c)
		ct.mapErr(c, err)
		return
	}

	ct.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (ct *Controller) logout(c *gin.Context) {
	ct.uc.Logout(c.Request.Context(), ct.refreshTokenFrom(c))
	ct.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

func (ct *Controller) changePassword(c *gin.Context) {
	id, ok := PrincipalID(c)
	if !ok {
		unauthenticated(c)
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current_password and new_password are required"})
		return
	}

	ct.log.Info("auth.change_password", zap.String("request_id", RequestID(c)))

	if err := ct.uc.ChangePassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		ct.mapErr(c, err)
		return
	}
	ct.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

func (ct *Controller) deactivate(c *gin.Context) {
	id, ok := PrincipalID(c)
	if !ok {
		unauthenticated(c)
		return
	}
	if err := ct.uc.Deactivate(c.Request.Context(), id); err != nil {
		ct.mapErr(c, err)
		return
	}
	ct.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

func (ct *Controller) me(c *gin.Context) {
	id, ok := PrincipalID(c)
	if !ok {
		unauthenticated(c)
		return
	}
	p, err := ct.uc.Profile(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		ct.mapErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toPrincipalResponse(p))
}

// mapErr translates domain kinds to stable external statuses. All token and
// credential failures share one 401 body; which check failed is logged, not
// echoed.
func (ct *Controller) mapErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrSessionRevoked),
		errors.Is(err, ErrSessionExpired):
		ct.log.Info("auth rejected",
			zap.String("request_id", RequestID(c)), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, ErrTransient):
		ct.log.Error("auth backend failure",
			zap.String("request_id", RequestID(c)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	default:
		ct.log.Error("unhandled auth error",
			zap.String("request_id", RequestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (ct *Controller) refreshTokenFrom(c *gin.Context) string {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if raw, err := c.Cookie(ct.cookie.Name); err == nil {
		return raw
	}
	return ""
}

func (ct *Controller) setRefreshCookie(c *gin.Context, raw string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ct.cookie.Name, raw, int(ct.refreshTTL.Seconds()),
		ct.cookie.Path, ct.cookie.Domain, ct.cookie.Secure, true)
}

func (ct *Controller) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ct.cookie.Name, "", -1,
		ct.cookie.Path, ct.cookie.Domain, ct.cookie.Secure, true)
}

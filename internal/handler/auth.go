package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
	"rollcall/internal/notify"
	"rollcall/internal/users"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// Register creates a FACULTY or STUDENT account and sends a welcome
// notification.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.emitter.Emit(c.Request.Context(), notify.Notification{
		UserID:   u.ID,
		Type:     notify.TypeWelcome,
		Title:    "Welcome!",
		Message:  "Welcome to the attendance system, " + u.Name + "!",
		Priority: "low",
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "registration successful",
		"user_id": u.ID,
		"name":    u.Name,
		"email":   u.Email,
		"role":    u.Role,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a JWT pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.issueTokens(c, u)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token: the old jti is revoked and a new pair
// is issued.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := auth.Parse(req.RefreshToken, h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil || claims.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	usable, err := h.usersRepo.RefreshTokenUsable(c.Request.Context(), claims.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !usable {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token revoked or expired"})
		return
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	u, err := h.usersRepo.ByID(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	if err := h.usersRepo.RevokeRefreshToken(c.Request.Context(), claims.ID); err != nil {
		h.fail(c, err)
		return
	}
	h.issueTokens(c, u)
}

func (h *Handler) issueTokens(c *gin.Context, u *users.User) {
	pair, err := auth.Issue(strconv.FormatInt(u.ID, 10), u.Role,
		h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.usersRepo.SaveRefreshToken(c.Request.Context(), u.ID, pair.RefreshID, pair.RefreshExp); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
		"token_type":    "bearer",
		"user_id":       u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"role":          u.Role,
	})
}

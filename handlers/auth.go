package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"kamuy/apperr"
	"kamuy/flash"
	"kamuy/middleware"
	"kamuy/models"
)

const oneYear = 365 * 24 * time.Hour

const (
	signedInMessage  = "Signed in successfully!"
	signedUpMessage  = "Signed up successfully!"
	wentWrongMessage = "Something went wrong, please fill in the values again!"
)

type loginRequest struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required,min=6"`
}

// Login signs the user in, creating the account on first use: if the email
// is unknown a user is created, otherwise the password must match. Success
// sets the access-token cookie and a flash message.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		flash.Set(c.Writer, h.cfg.ReleaseMode, flash.Error(wentWrongMessage))
		h.fail(c, fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error()))
		return
	}

	user, err := h.store.UserByEmail(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			h.failWithFlash(c, apperr.ErrUnauthenticated)
			return
		}
		h.issueSession(c, user, signedInMessage)

	case errors.Is(err, apperr.ErrNotFound):
		user, err := h.signUp(c, &req)
		if err != nil {
			flash.Set(c.Writer, h.cfg.ReleaseMode, flash.Error(wentWrongMessage))
			h.fail(c, err)
			return
		}
		h.issueSession(c, user, signedUpMessage)

	default:
		h.fail(c, err)
	}
}

func (h *Handler) signUp(c *gin.Context, req *loginRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing password: %v", apperr.ErrUpstream, err)
	}

	user := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    models.Now(),
	}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *Handler) issueSession(c *gin.Context, user *models.User, message string) {
	claims := &middleware.Claims{
		UserID: user.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(oneYear)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		h.fail(c, fmt.Errorf("%w: signing token: %v", apperr.ErrUpstream, err))
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(oneYear.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	flash.Set(c.Writer, h.cfg.ReleaseMode, flash.Success(message))

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	c.JSON(http.StatusOK, gin.H{})
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	callerID, err := h.callerID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.store.UserByID(c.Request.Context(), callerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

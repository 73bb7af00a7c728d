package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"civicsync-dashboard/session"

	"github.com/gin-gonic/gin"
)

// LoginAdmin handles the dashboard login form
func (d *Dashboard) LoginAdmin(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	err := d.Sessions.Login(ctx, input.Email, input.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, d.Sessions.Snapshot())
	case errors.Is(err, session.ErrLoginUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "A session is already active or signing in"})
	default:
		snap := d.Sessions.Snapshot()
		message := snap.Error
		if message == "" {
			message = session.MsgInvalidCredentials
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": message})
	}
}

// LogoutAdmin ends the provider session. The session state follows asynchronously.
func (d *Dashboard) LogoutAdmin(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	// The provider drops the session even when revocation fails.
	if err := d.Sessions.Logout(ctx); err != nil {
		log.Println("Error signing out:", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetSession returns the current session state, admin identity and login error
func (d *Dashboard) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, d.Sessions.Snapshot())
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetProfiles returns the reporter profile snapshot of the current session
func (d *Dashboard) GetProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, d.Data.Profiles())
}

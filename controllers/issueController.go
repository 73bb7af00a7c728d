package controllers

import (
	"context"
	"io"
	"net/http"
	"time"

	"civicsync-dashboard/models"
	"civicsync-dashboard/priority"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

type issueQuery struct {
	Sort     string `form:"sort" binding:"omitempty,oneof=priority upvotes user_coins date_newest date_oldest"`
	Status   string `form:"status" binding:"omitempty,oneof=All Acknowledged In-Progress Resolved"`
	Media    bool   `form:"media"`
	Location string `form:"location"`
}

func (q issueQuery) viewState() models.ViewState {
	view := models.DefaultViewState()
	if q.Sort != "" {
		view.SortKey = models.SortKey(q.Sort)
	}
	if q.Status != "" {
		view.StatusFilter = q.Status
	}
	view.MediaOnly = q.Media
	view.LocationQuery = q.Location
	return view
}

// IssueList is the filtered, prioritized table plus the selections that produced it.
type IssueList struct {
	Issues []models.IssueRow `json:"issues"`
	Count  int               `json:"count"`
	View   models.ViewState  `json:"view"`
}

func (d *Dashboard) issueList(view models.ViewState) IssueList {
	profiles := d.Data.Profiles()
	ordered := priority.Apply(d.Data.Issues(), profiles, view)
	rows := priority.Rows(ordered, profiles)
	return IssueList{Issues: rows, Count: len(rows), View: view}
}

// GetIssues returns the issue table for the requested filters and sort key
func (d *Dashboard) GetIssues(c *gin.Context) {
	var query issueQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, d.issueList(query.viewState()))
}

// StreamIssues pushes the issue table as server-sent events whenever the
// caches change. The stream ends when the session is no longer authenticated.
func (d *Dashboard) StreamIssues(c *gin.Context) {
	var query issueQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view := query.viewState()

	changes, release := d.Data.Changes()
	defer release()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	first := true
	c.Stream(func(w io.Writer) bool {
		if first {
			first = false
			c.Render(-1, sse.Event{Event: "issues", Data: d.issueList(view)})
			return true
		}

		select {
		case <-c.Request.Context().Done():
			return false
		case _, ok := <-changes:
			if !ok {
				return false
			}
			if snap := d.Sessions.Snapshot(); !snap.Authenticated() {
				c.Render(-1, sse.Event{Event: "session", Data: snap})
				return false
			}
			c.Render(-1, sse.Event{Event: "issues", Data: d.issueList(view)})
			return true
		}
	})
}

// UpdateIssueStatus requests a status change for one issue. The table picks
// the change up from the live feed; store failures are only logged.
func (d *Dashboard) UpdateIssueStatus(c *gin.Context) {
	issueID := c.Param("id")

	var input struct {
		Status string `json:"status" binding:"required,oneof=Acknowledged In-Progress Resolved"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	_ = d.Status.SetStatus(ctx, issueID, models.IssueStatus(input.Status))

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Status update requested",
		"id":      issueID,
		"status":  input.Status,
	})
}

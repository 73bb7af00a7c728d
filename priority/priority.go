package priority

import (
	"sort"
	"strings"

	"civicsync-dashboard/models"
)

// reputationWeight divides reporter points before they are added to upvotes.
const reputationWeight = 10

// Score is the composite priority of an issue: upvotes plus a tenth of the reporter's points.
func Score(issue models.Issue, profiles map[string]models.Profile) float64 {
	points := models.ReporterPoints(profiles, issue.ReporterID)
	return float64(issue.Upvotes) + float64(points)/reputationWeight
}

// Apply filters and orders issues for display. The input slice is not
// modified; ties keep their input order.
func Apply(issues []models.Issue, profiles map[string]models.Profile, view models.ViewState) []models.Issue {
	out := make([]models.Issue, 0, len(issues))
	query := strings.ToLower(view.LocationQuery)

	for _, issue := range issues {
		if view.StatusFilter != "" && view.StatusFilter != models.StatusAll && string(issue.Status) != view.StatusFilter {
			continue
		}
		if view.MediaOnly && !issue.HasMedia() {
			continue
		}
		if query != "" && (issue.Location == "" || !strings.Contains(strings.ToLower(issue.Location), query)) {
			continue
		}
		out = append(out, issue)
	}

	if less := comparator(out, profiles, view.SortKey); less != nil {
		sort.SliceStable(out, less)
	}
	return out
}

func comparator(issues []models.Issue, profiles map[string]models.Profile, key models.SortKey) func(i, j int) bool {
	points := func(i int) int {
		return models.ReporterPoints(profiles, issues[i].ReporterID)
	}

	switch key {
	case models.SortPriority:
		return func(i, j int) bool {
			return Score(issues[i], profiles) > Score(issues[j], profiles)
		}
	case models.SortUpvotes:
		return func(i, j int) bool {
			return issues[i].Upvotes > issues[j].Upvotes
		}
	case models.SortUserCoins:
		return func(i, j int) bool {
			return points(i) > points(j)
		}
	case models.SortDateNewest:
		return func(i, j int) bool {
			return issues[i].CreatedMillis() > issues[j].CreatedMillis()
		}
	case models.SortDateOldest:
		return func(i, j int) bool {
			return issues[i].CreatedMillis() < issues[j].CreatedMillis()
		}
	}
	return nil
}

// Rows projects ordered issues into table rows joined with reporter profiles.
func Rows(issues []models.Issue, profiles map[string]models.Profile) []models.IssueRow {
	rows := make([]models.IssueRow, 0, len(issues))
	for _, issue := range issues {
		var reporter *models.Profile
		if p, ok := profiles[issue.ReporterID]; ok && issue.ReporterID != "" {
			reporter = &p
		}
		rows = append(rows, models.NewIssueRow(issue, reporter))
	}
	return rows
}

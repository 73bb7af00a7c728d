package models

// SortKey enum
type SortKey string

const (
	SortPriority   SortKey = "priority"
	SortUpvotes    SortKey = "upvotes"
	SortUserCoins  SortKey = "user_coins"
	SortDateNewest SortKey = "date_newest"
	SortDateOldest SortKey = "date_oldest"
)

// StatusAll disables the status filter.
const StatusAll = "All"

// ViewState holds the dashboard's current filter and sort selections
type ViewState struct {
	SortKey       SortKey `json:"sort"`
	StatusFilter  string  `json:"status"`
	MediaOnly     bool    `json:"media"`
	LocationQuery string  `json:"location"`
}

// DefaultViewState is what a freshly opened dashboard shows.
func DefaultViewState() ViewState {
	return ViewState{
		SortKey:      SortPriority,
		StatusFilter: StatusAll,
	}
}

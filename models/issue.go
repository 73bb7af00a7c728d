package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// IssueStatus enum
type IssueStatus string

const (
	Acknowledged IssueStatus = "Acknowledged"
	InProgress   IssueStatus = "In-Progress"
	Resolved     IssueStatus = "Resolved"
)

// Valid reports whether s is one of the statuses an authority can assign.
func (s IssueStatus) Valid() bool {
	switch s {
	case Acknowledged, InProgress, Resolved:
		return true
	}
	return false
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID         string      `bson:"-" json:"id"`
	Title      string      `bson:"title" json:"title"`
	Location   string      `bson:"location,omitempty" json:"location,omitempty"`
	Status     IssueStatus `bson:"status" json:"status"`
	Upvotes    int         `bson:"upvotes,omitempty" json:"upvotes"`
	ImageURL   string      `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	VideoURL   string      `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	AudioURL   string      `bson:"audioUrl,omitempty" json:"audioUrl,omitempty"`
	ReporterID string      `bson:"reporterId,omitempty" json:"reporterId,omitempty"`
	CreatedAt  *time.Time  `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// UnmarshalBSON decodes leniently. Citizens' clients write these documents,
// so a field stored with an unexpected type decodes to its zero value
// instead of dropping the whole issue.
func (i *Issue) UnmarshalBSON(data []byte) error {
	type plain Issue
	id := i.ID
	if err := bson.Unmarshal(data, (*plain)(i)); err == nil {
		i.ID = id
		return nil
	}

	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return err
	}
	*i = Issue{
		ID:         id,
		Title:      rawString(raw, "title"),
		Location:   rawString(raw, "location"),
		Status:     IssueStatus(rawString(raw, "status")),
		Upvotes:    rawInt(raw, "upvotes"),
		ImageURL:   rawString(raw, "imageUrl"),
		VideoURL:   rawString(raw, "videoUrl"),
		AudioURL:   rawString(raw, "audioUrl"),
		ReporterID: rawString(raw, "reporterId"),
		CreatedAt:  rawTime(raw, "createdAt"),
	}
	return nil
}

func rawString(raw bson.Raw, key string) string {
	s, _ := raw.Lookup(key).StringValueOK()
	return s
}

func rawInt(raw bson.Raw, key string) int {
	v := raw.Lookup(key)
	switch v.Type {
	case bson.TypeInt32:
		return int(v.Int32())
	case bson.TypeInt64:
		return int(v.Int64())
	case bson.TypeDouble:
		return int(v.Double())
	case bson.TypeString:
		n, _ := strconv.Atoi(v.StringValue())
		return n
	}
	return 0
}

func rawTime(raw bson.Raw, key string) *time.Time {
	v := raw.Lookup(key)
	var t time.Time
	switch v.Type {
	case bson.TypeDateTime:
		t = v.Time()
	case bson.TypeTimestamp:
		sec, _ := v.Timestamp()
		t = time.Unix(int64(sec), 0)
	case bson.TypeString:
		parsed, err := time.Parse(time.RFC3339, v.StringValue())
		if err != nil {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	return &t
}

// HasMedia reports whether any media reference is attached.
func (i Issue) HasMedia() bool {
	return i.ImageURL != "" || i.VideoURL != "" || i.AudioURL != ""
}

// MediaURL returns the first present media reference, image before video before audio.
func (i Issue) MediaURL() string {
	switch {
	case i.ImageURL != "":
		return i.ImageURL
	case i.VideoURL != "":
		return i.VideoURL
	default:
		return i.AudioURL
	}
}

// CreatedMillis is the creation time in Unix milliseconds, 0 when unknown.
func (i Issue) CreatedMillis() int64 {
	if i.CreatedAt == nil {
		return 0
	}
	return i.CreatedAt.UnixMilli()
}

// IssueRow is the table projection of an issue joined with its reporter.
type IssueRow struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Location      string      `json:"location"`
	MediaURL      string      `json:"mediaUrl,omitempty"`
	ReporterName  string      `json:"reporterName"`
	ReporterCoins int         `json:"reporterCoins"`
	Upvotes       int         `json:"upvotes"`
	ReportedOn    string      `json:"reportedOn"`
	Status        IssueStatus `json:"status"`
}

// NewIssueRow joins an issue with its reporter profile. A nil profile renders as a guest.
func NewIssueRow(issue Issue, reporter *Profile) IssueRow {
	row := IssueRow{
		ID:           issue.ID,
		Title:        issue.Title,
		Location:     issue.Location,
		MediaURL:     issue.MediaURL(),
		ReporterName: GuestName,
		Upvotes:      issue.Upvotes,
		ReportedOn:   "N/A",
		Status:       issue.Status,
	}
	if reporter != nil {
		row.ReporterName = reporter.DisplayName()
		row.ReporterCoins = reporter.Points
	}
	if issue.CreatedAt != nil && !issue.CreatedAt.IsZero() {
		row.ReportedOn = issue.CreatedAt.Format("2006-01-02")
	}
	return row
}

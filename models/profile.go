package models

// GuestName is shown for anonymous reporters and reporters without a profile.
const GuestName = "Guest User"

// Profile is a citizen reporter's public record
type Profile struct {
	ID     string `bson:"-" json:"id"`
	Name   string `bson:"name,omitempty" json:"name,omitempty"`
	Points int    `bson:"points,omitempty" json:"points"`
}

func (p Profile) DisplayName() string {
	if p.Name == "" {
		return GuestName
	}
	return p.Name
}

// ReporterPoints looks up the point balance of an issue's reporter, 0 when unknown.
func ReporterPoints(profiles map[string]Profile, reporterID string) int {
	if reporterID == "" {
		return 0
	}
	return profiles[reporterID].Points
}

// Package campus holds the static campus map data: buildings, their
// coordinates, and the rooms they contain, searchable by keyword.
package campus

import "strings"

// Room is one named room inside a building.
type Room struct {
	RoomName    string `json:"roomName"`
	Floor       string `json:"floor"`
	Description string `json:"description"`
}

// Building is one mapped campus building.
type Building struct {
	Name      string   `json:"name"`
	Keywords  []string `json:"keywords"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Rooms     []Room   `json:"rooms"`
}

var buildings = []Building{
	{
		Name:      "Administrative Block",
		Keywords:  []string{"admin", "administrative", "director office", "accounts"},
		Latitude:  27.1291,
		Longitude: 93.7458,
		Rooms: []Room{
			{RoomName: "Director's Office", Floor: "1", Description: "Institute director"},
			{RoomName: "Accounts Section", Floor: "Ground", Description: "Fees and payments"},
		},
	},
	{
		Name:      "Central Library",
		Keywords:  []string{"library", "reading hall", "books"},
		Latitude:  27.1286,
		Longitude: 93.7449,
		Rooms: []Room{
			{RoomName: "Reading Hall", Floor: "1", Description: "Open 9 AM to 8 PM"},
			{RoomName: "Reference Section", Floor: "Ground", Description: "Journals and reference books"},
		},
	},
	{
		Name:      "Physics Building",
		Keywords:  []string{"physics", "physics lab"},
		Latitude:  27.1272,
		Longitude: 93.7441,
		Rooms: []Room{
			{RoomName: "Physics Lab", Floor: "Ground", Description: "South Campus physics laboratory"},
		},
	},
	{
		Name:      "Computer Science Department",
		Keywords:  []string{"cse", "computer", "computer lab", "programming lab"},
		Latitude:  27.1268,
		Longitude: 93.7453,
		Rooms: []Room{
			{RoomName: "Programming Lab", Floor: "1", Description: "General purpose computer lab"},
			{RoomName: "Seminar Hall", Floor: "2", Description: "Department seminars"},
		},
	},
	{
		Name:      "Boys Hostel",
		Keywords:  []string{"boys hostel", "bh"},
		Latitude:  27.1303,
		Longitude: 93.7472,
	},
	{
		Name:      "Girls Hostel",
		Keywords:  []string{"girls hostel", "gh"},
		Latitude:  27.1308,
		Longitude: 93.7464,
	},
	{
		Name:      "Auditorium",
		Keywords:  []string{"auditorium", "convocation", "events hall"},
		Latitude:  27.1295,
		Longitude: 93.7446,
	},
}

// Search returns the first building with a keyword containing q
// (case-insensitive), or nil when nothing matches or q is blank.
func Search(q string) *Building {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	for i := range buildings {
		for _, keyword := range buildings[i].Keywords {
			if strings.Contains(strings.ToLower(keyword), q) {
				return &buildings[i]
			}
		}
	}
	return nil
}

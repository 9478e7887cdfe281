// Package wishlist turns the wishlist contents of many members into a popularity report.
package wishlist

import (
	"fmt"
	"strings"
)

// Member is someone whose wishlist gets fetched.
type Member struct {
	ID   string
	Name string
}

// Item is one entry of a single member's wishlist.
type Item struct {
	ID    string
	Title string
}

// Record is one item as wanted by one member.
type Record struct {
	ItemID     string
	ItemTitle  string
	MemberID   string
	MemberName string
}

// RecordsFor attaches a member to each of their wishlist items.
func RecordsFor(member Member, items []Item) []Record {
	records := make([]Record, len(items))
	for i, item := range items {
		records[i] = Record{
			ItemID:     item.ID,
			ItemTitle:  item.Title,
			MemberID:   member.ID,
			MemberName: member.Name,
		}
	}
	return records
}

// TallyEntry is the aggregate of every record sharing an item id.
type TallyEntry struct {
	ItemID string
	// Title is taken from the first record seen for ItemID.
	Title string
	Count int
	// Members holds one display name per counted record, in the order they were seen.
	Members []string
}

// Tally maps item ids to their aggregate.
type Tally map[string]TallyEntry

// ReportLine is a single ranked line of the final report.
type ReportLine struct {
	Rank    int
	Count   int
	ItemID  string
	Title   string
	Members []string
}

func (l ReportLine) WantedBy() string {
	return strings.Join(l.Members, ", ")
}

func (l ReportLine) String() string {
	return fmt.Sprintf(
		"%d - score: %d - %s --- Wanted by %s",
		l.Rank, l.Count, l.Title, l.WantedBy(),
	)
}

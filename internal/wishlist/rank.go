package wishlist

import (
	"cmp"
	"slices"
)

// Rank orders the entries by ascending count, breaking ties by ascending item id, and
// numbers them as a countdown: the first (least wanted) line gets rank len(filtered) and
// the last (most wanted) line gets rank 1.
func Rank(filtered Tally) []ReportLine {
	entries := make([]TallyEntry, 0, len(filtered))
	for _, entry := range filtered {
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b TallyEntry) int {
		if c := cmp.Compare(a.Count, b.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})

	lines := make([]ReportLine, len(entries))
	for i, entry := range entries {
		members := make([]string, len(entry.Members))
		copy(members, entry.Members)
		lines[i] = ReportLine{
			Rank:    len(entries) - i,
			Count:   entry.Count,
			ItemID:  entry.ItemID,
			Title:   entry.Title,
			Members: members,
		}
	}
	return lines
}

func FormatReport(lines []ReportLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return out
}

// Build runs the whole aggregation: tally, filter and rank.
func Build(records []Record, minThreshold int) (Tally, Tally, []ReportLine) {
	tally := Aggregate(records)
	filtered := Filter(tally, minThreshold)
	return tally, filtered, Rank(filtered)
}

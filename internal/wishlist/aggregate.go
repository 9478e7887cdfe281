package wishlist

// Aggregate folds records into a tally keyed by item id.
//
// Records are visited once in input order. Every record counts, so an item listed
// twice by the same member is counted twice (see DedupePerMember).
func Aggregate(records []Record) Tally {
	tally := make(Tally)
	for _, r := range records {
		entry, ok := tally[r.ItemID]
		if !ok {
			tally[r.ItemID] = TallyEntry{
				ItemID:  r.ItemID,
				Title:   r.ItemTitle,
				Count:   1,
				Members: []string{r.MemberName},
			}
			continue
		}
		entry.Count++
		entry.Members = append(entry.Members, r.MemberName)
		tally[r.ItemID] = entry
	}
	return tally
}

type memberItem struct {
	member string
	item   string
}

// DedupePerMember drops every record whose (member id, item id) pair was already seen,
// so that each member votes at most once per item.
func DedupePerMember(records []Record) []Record {
	seen := make(map[memberItem]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		key := memberItem{member: r.MemberID, item: r.ItemID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Filter keeps the entries wanted at least minThreshold times. A threshold below 1 is
// treated as 1. The input tally is left untouched.
func Filter(tally Tally, minThreshold int) Tally {
	if minThreshold < 1 {
		minThreshold = 1
	}
	filtered := make(Tally)
	for id, entry := range tally {
		if entry.Count >= minThreshold {
			filtered[id] = entry
		}
	}
	return filtered
}

type Summary struct {
	// Distinct is the number of different items across all wishlists.
	Distinct int
	// Removed is the number of items that did not reach the threshold.
	Removed int
	// Kept is the number of items in the report.
	Kept int
}

func Summarize(tally, filtered Tally) Summary {
	return Summary{
		Distinct: len(tally),
		Removed:  len(tally) - len(filtered),
		Kept:     len(filtered),
	}
}

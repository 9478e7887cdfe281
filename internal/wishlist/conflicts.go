package wishlist

import (
	"github.com/antzucaro/matchr"
)

// TitleConflict describes an item id that was seen with more than one title.
type TitleConflict struct {
	ItemID string
	// Kept is the first-seen title, the one Aggregate reports.
	Kept string
	// Other is a differing title seen later for the same id.
	Other string
	// Similarity is the Jaro-Winkler similarity of Kept and Other, in [0, 1].
	Similarity float64
}

// TitleConflicts lists every distinct title that disagrees with the first title seen for
// its item id, in the order the disagreement was first observed.
func TitleConflicts(records []Record) []TitleConflict {
	kept := make(map[string]string)
	reported := make(map[[2]string]struct{})

	var result []TitleConflict
	for _, r := range records {
		first, ok := kept[r.ItemID]
		if !ok {
			kept[r.ItemID] = r.ItemTitle
			continue
		}
		if first == r.ItemTitle {
			continue
		}
		key := [2]string{r.ItemID, r.ItemTitle}
		if _, ok := reported[key]; ok {
			continue
		}
		reported[key] = struct{}{}

		result = append(result, TitleConflict{
			ItemID:     r.ItemID,
			Kept:       first,
			Other:      r.ItemTitle,
			Similarity: matchr.JaroWinkler(first, r.ItemTitle, false),
		})
	}
	return result
}

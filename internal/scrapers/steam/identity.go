package steam

func isNumeric(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// profilePath gives the path segments of a profile, a numeric id is a 64 bit
// steam id and anything else is a custom (vanity) url.
func profilePath(id string) []string {
	if isNumeric(id) {
		return []string{"profiles", id}
	}
	return []string{"id", id}
}

// groupPath works like profilePath for groups.
func groupPath(id string) []string {
	if isNumeric(id) {
		return []string{"gid", id}
	}
	return []string{"groups", id}
}

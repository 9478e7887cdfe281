package commands

import (
	"steamwishlist/internal/reportstore"
	"steamwishlist/internal/scrapers/steam"
)

const (
	formatText  = "text"
	formatTable = "table"
)

type Config struct {
	BaseUrl        string `json:"base_url" validate:"required,url"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"gte=1"`
	UserAgent      string `json:"user_agent"`
	// MinThreshold below 1 behaves like 1.
	MinThreshold    int                `json:"min_threshold"`
	DedupePerMember bool               `json:"dedupe_per_member"`
	Format          string             `json:"format" validate:"oneof=text table"`
	Export          reportstore.Config `json:"export"`
}

func defaultConfig() Config {
	return Config{
		BaseUrl:        steam.DefaultBaseUrl,
		TimeoutSeconds: 30,
		UserAgent:      steam.DefaultUserAgent,
		MinThreshold:   2,
		Format:         formatText,
	}
}

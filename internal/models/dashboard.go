package models

// HistoryItem is a single recorded reading. Never mutated after creation.
type HistoryItem struct {
	Moisture       float64 `json:"moisture"`
	Recommendation string  `json:"recommendation"`
	Timestamp      string  `json:"timestamp"` // HH:MM:SS, 24h
	Color          string  `json:"color"`
}

// DashboardView is the read model handed to renderers.
type DashboardView struct {
	Moisture           float64       `json:"moisture"`
	MoisturePercent    float64       `json:"moisture_percent"`
	Recommendation     string        `json:"recommendation"`
	RecommendationText string        `json:"recommendation_text"`
	StateColor         string        `json:"state_color"`
	Status             string        `json:"status"`
	LastUpdate         string        `json:"last_update"`
	ServoPosition      int           `json:"servo_position"`
	ServoStatus        string        `json:"servo_status"`
	ServoColor         string        `json:"servo_color"`
	ManualActive       bool          `json:"manual_active"`
	ShowWarning        bool          `json:"show_warning"`
	History            []HistoryItem `json:"history"`
}

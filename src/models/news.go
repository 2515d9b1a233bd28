package models

// NewsArticle is a single item from the news feed for an instrument.
type NewsArticle struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Source         string  `json:"source"`
	Summary        string  `json:"summary"`
	PublishedAt    string  `json:"published_at"`
	Sentiment      string  `json:"sentiment,omitempty"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

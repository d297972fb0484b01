package database

// ImageRecord is a single gallery entry. Records are immutable once created.
type ImageRecord struct {
	ID        string `json:"id"`
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	Category  string `json:"category"`
	CreatedAt string `json:"createdAt"` // ISO-8601, UTC, millisecond precision
}

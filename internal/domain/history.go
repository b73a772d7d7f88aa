package domain

import "time"

// HistoryEntry records one successful generation handed off by a batch.
type HistoryEntry struct {
	ID          string
	UserID      string
	BatchID     string
	Provider    string
	Prompt      string
	AspectRatio AspectRatio
	StorageKey  string
	MIMEType    string
	CreatedAt   time.Time
}

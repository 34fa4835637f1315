package feed

import (
	"time"
)

// Entry is one normalized feed item
type Entry struct {
	Title     string
	Summary   string
	Link      string
	Published *time.Time // nil when the feed carries no parseable date
}

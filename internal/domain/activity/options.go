package activity

import "time"

// ListOptions provides filtering options for listing records.
type ListOptions struct {
	AppID    string
	Since    time.Time
	OnlyOpen bool
	Limit    int
	Offset   int
}

package model

import "time"

// ComparisonRecord is a persisted comparison of one subject.
type ComparisonRecord struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

package model

import "time"

// Job は収集済みの求人情報を表す。
type Job struct {
	ID          string
	Title       string
	Company     string
	Description string
	Category    string
	URL         string
	Source      string
	CreatedAt   time.Time
}

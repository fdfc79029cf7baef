// HistoryData is a paginated response payload for the detection history.
package dto

import (
	"encoding/json"
	"time"
)

type HistoryData struct {
	Passes      []PassInfo `json:"passes"`
	Length      int        `json:"length"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Limit       int        `json:"pageSize"`
}

// PassInfo is one history entry with the distinct labels it produced.
type PassInfo struct {
	PassID         string    `json:"pass_id"`
	Session        string    `json:"session"`
	Mode           string    `json:"mode"`
	Date           time.Time `json:"date"`
	Threshold      float64   `json:"threshold"`
	Total          int       `json:"total"`
	AboveThreshold int       `json:"above_threshold"`
	Failures       int       `json:"failures"`
	Labels         []string  `json:"labels"`
}

// MarshalJSON formats the pass date as "02-01-2006 15:04".
func (p PassInfo) MarshalJSON() ([]byte, error) {
	type Alias PassInfo
	return json.Marshal(&struct {
		Date string `json:"date"`
		Alias
	}{
		Date:  p.Date.Format("02-01-2006 15:04"),
		Alias: (Alias)(p),
	})
}

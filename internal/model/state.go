package model

// ViewState is the comparator screen currently shown to the user.
type ViewState string

const (
	StateSelecting       ViewState = "selecting"
	StateAnalyzing       ViewState = "analyzing"
	StateShowingResults  ViewState = "showing_results"
	StateUpgradeRequired ViewState = "upgrade_required"
)

// Usage is the quota as shown in the comparator header ("1/2").
type Usage struct {
	Count     int `json:"count"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

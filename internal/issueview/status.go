// Package issueview holds the presentation rules applied to issue lists:
// status and priority classification, status filtering and sorting.
// Every function is pure and never mutates its input.
package issueview

import "strings"

// ColorTier is the display colour family of a status.
type ColorTier string

const (
	TierNeutral ColorTier = "neutral"
	TierWarning ColorTier = "warning"
	TierInfo    ColorTier = "info"
	TierSuccess ColorTier = "success"
	TierAccent  ColorTier = "accent"
	TierDanger  ColorTier = "danger"
)

// StatusDisplay describes how a status is rendered.
type StatusDisplay struct {
	ColorTier ColorTier `json:"color_tier"`
	Icon      string    `json:"icon"`
	LabelKey  string    `json:"label_key"`
}

// IconUnknown is shown for statuses outside the known set.
const IconUnknown = "help"

var statusDisplays = map[string]StatusDisplay{
	"pending":   {ColorTier: TierWarning, Icon: "schedule", LabelKey: "status.pending"},
	"assigned":  {ColorTier: TierInfo, Icon: "assignment_ind", LabelKey: "status.assigned"},
	"completed": {ColorTier: TierSuccess, Icon: "check_circle", LabelKey: "status.completed"},
	"verified":  {ColorTier: TierAccent, Icon: "verified", LabelKey: "status.verified"},
	"rejected":  {ColorTier: TierDanger, Icon: "cancel", LabelKey: "status.rejected"},
}

// ClassifyStatus maps a raw status to its display. Matching is
// case-insensitive; unrecognised input falls back to the neutral tier
// with the raw string as label.
func ClassifyStatus(status string) StatusDisplay {
	if display, ok := statusDisplays[strings.ToLower(status)]; ok {
		return display
	}
	return StatusDisplay{ColorTier: TierNeutral, Icon: IconUnknown, LabelKey: status}
}

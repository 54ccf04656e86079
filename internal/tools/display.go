package tools

import "github.com/Gere2/AIGNITE/internal/models"

// Display is how a client should present a risk label.
type Display struct {
	Icon     string `json:"icon"`
	Severity string `json:"severity"`
	Headline string `json:"headline"`
}

// DisplayFor maps a label to its presentation. It has no other inputs.
func DisplayFor(l models.RiskLabel) Display {
	switch l {
	case models.RiskLow:
		return Display{Icon: "🟢", Severity: "success", Headline: "Risk level: Low"}
	case models.RiskMedium:
		return Display{Icon: "🟡", Severity: "warning", Headline: "Risk level: Medium"}
	case models.RiskHigh:
		return Display{Icon: "🔴", Severity: "error", Headline: "Risk level: High"}
	}
	return Display{Icon: "⚪", Severity: "info", Headline: "Risk level: unknown"}
}

package insights

import (
	"fmt"
	"strings"
)

var priorityMarkers = map[string]string{
	PriorityCritical: "🚨",
	PriorityHigh:     "⚠️",
	PriorityMedium:   "📊",
	PriorityLow:      "💡",
}

// FormatForChat renders an insight as the markdown-ish block the chat
// collaborator feeds to the language model. Pure formatting; no engine state.
func FormatForChat(ins Insight) string {
	marker, ok := priorityMarkers[ins.Priority]
	if !ok {
		marker = "📊"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s**\n\n%s\n", marker, ins.Title, ins.Description)

	if len(ins.Evidence) > 0 {
		b.WriteString("\n**Evidence:**\n")
		for _, ev := range ins.Evidence {
			fmt.Fprintf(&b, "- %s: %s", ev.Metric, ev.Value)
			if ev.Comparison != "" {
				fmt.Fprintf(&b, " (%s)", ev.Comparison)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

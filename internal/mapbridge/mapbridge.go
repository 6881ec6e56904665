package mapbridge

// CommandBuilder turns a list of precinct IDs plus a style tag into an opaque
// command the dashboard's map layer knows how to execute. The analytics side
// never interprets the result; it only embeds it on an insight.
type CommandBuilder interface {
	Highlight(precinctIDs []string, style string) map[string]any
}

// Bridge is the default builder, emitting the command shape the front-end's
// map controller consumes.
type Bridge struct{}

func (Bridge) Highlight(precinctIDs []string, style string) map[string]any {
	ids := make([]string, len(precinctIDs))
	copy(ids, precinctIDs)

	return map[string]any{
		"type":        "highlight",
		"precinctIds": ids,
		"style":       style,
	}
}

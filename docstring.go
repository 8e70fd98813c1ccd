package rest

import "strings"

// splitDocstring cuts text at the first line starting with delimiter and
// splits what remains into a summary, its first paragraph, and a
// description, the rest.
func splitDocstring(text, delimiter string) (summary, description string) {
	var kept []string
	for line := range strings.SplitSeq(text, "\n") {
		if delimiter != "" && strings.HasPrefix(strings.TrimSpace(line), delimiter) {
			break
		}
		kept = append(kept, strings.TrimRight(line, " \t\r"))
	}
	text = strings.TrimSpace(dedent(kept))
	if text == "" {
		return "", ""
	}

	summary, description, _ = strings.Cut(text, "\n\n")
	summary = strings.Join(strings.Fields(summary), " ")
	return summary, strings.TrimSpace(description)
}

// dedent removes the indentation common to every non-blank line.
func dedent(lines []string) string {
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, line := range lines {
			if len(line) >= indent {
				lines[i] = line[indent:]
			}
		}
	}
	return strings.Join(lines, "\n")
}

package templates

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const barWidth = 20

// RenderText writes a plain-text rendition of tree, for terminals.
func RenderText(w io.Writer, tree RenderTree) error {
	bw := bufio.NewWriter(w)

	if tree.Header.Initials != "" {
		fmt.Fprintf(bw, "[%s]\n", tree.Header.Initials)
	}
	fmt.Fprintln(bw, tree.Header.Name)
	fmt.Fprintln(bw, tree.Header.Headline)
	fmt.Fprintln(bw, strings.Join(tree.Header.Contact, " | "))

	for _, s := range tree.Sections {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, s.Heading)
		fmt.Fprintln(bw, strings.Repeat("-", len([]rune(s.Heading))))

		for _, line := range s.Lines {
			fmt.Fprintf(bw, "  %s\n", line)
		}
		for _, it := range s.Items {
			head := it.Title
			if it.Subtitle != "" {
				head += ", " + it.Subtitle
			}
			if it.Period != "" {
				head += " (" + it.Period + ")"
			}
			fmt.Fprintf(bw, "  %s\n", head)
			for _, line := range it.Lines {
				fmt.Fprintf(bw, "    %s\n", line)
			}
		}
		for _, sk := range s.Skills {
			switch s.SkillStyle {
			case SkillBars:
				filled := sk.Level * barWidth / 100
				fmt.Fprintf(bw, "  %-20s [%s%s] %d%%\n", sk.Name,
					strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), sk.Level)
			case SkillDots:
				fmt.Fprintf(bw, "  %-20s %s%s\n", sk.Name,
					strings.Repeat("*", sk.Filled), strings.Repeat("o", sk.Dots-sk.Filled))
			default:
				fmt.Fprintf(bw, "  - %s\n", sk.Name)
			}
		}
	}

	return bw.Flush()
}

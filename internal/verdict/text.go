package verdict

import (
	"bufio"
	"fmt"
	"io"
)

var iconGlyphs = map[string]string{
	"thumb_up":       "[+]",
	"thumb_down":     "[-]",
	"thumbs_up_down": "[~]",
}

var fitMarks = map[FitCategory]string{
	FitAffirmative: "OK",
	FitNegative:    "NO",
	FitNeutral:     "??",
}

// WriteText renders the view as plain text in the same order as the HTML
// template.
func WriteText(w io.Writer, v View) error {
	bw := bufio.NewWriter(w)

	if v.Failed {
		fmt.Fprintf(bw, "Error: %s\n", v.ErrorMessage)
		return bw.Flush()
	}

	if v.HasIcon() {
		fmt.Fprintf(bw, "%s ", iconGlyphs[string(v.Icon)])
	}
	fmt.Fprintln(bw, v.Title)
	if v.HealthScore != "" {
		fmt.Fprintln(bw, v.HealthScore)
	}
	if v.Explanation != "" {
		fmt.Fprintf(bw, "\n%s\n", v.Explanation)
	}

	if len(v.Facts) > 0 {
		fmt.Fprintln(bw, "\nNutrition Facts")
		for _, f := range v.Facts {
			fmt.Fprintf(bw, "  %-9s %s\n", f.Label, f.Value)
		}
	}

	writeList(bw, "Positive Aspects", v.Positives)
	writeList(bw, "Concerns", v.Concerns)
	writeList(bw, "Healthier Alternatives", v.Alternatives)
	writeList(bw, "Tips", v.Tips)

	fmt.Fprintf(bw, "\n[%s] %s\n", fitMarks[v.Fit], v.FitLabel)
	return bw.Flush()
}

func writeList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", heading)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

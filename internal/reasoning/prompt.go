package reasoning

import (
	"fmt"
	"strings"

	"github.com/skyfield-labs/co2scan/internal/model"
)

// systemPrompt frames the model as an environmental analyst. It is identical
// for every request, so it carries a prompt-cache breakpoint upstream.
const systemPrompt = `You are an environmental data analyst specializing in satellite carbon observation.
You are given one anomalous CO2 measurement from a satellite sounding grid.
Explain the most plausible causes for the elevated concentration at that
location and date, considering geography, season, and known emission sources.
Answer in 2-3 sentences of plain prose for a map popup. Do not restate the
numbers you were given.`

// BuildPrompt renders the user message for one anomaly.
func BuildPrompt(a model.Anomaly) string {
	var b strings.Builder
	b.WriteString("Observed CO2 anomaly:\n")
	fmt.Fprintf(&b, "- Date: %s\n", a.Date)
	fmt.Fprintf(&b, "- Location: latitude %.2f°, longitude %.2f°\n", a.Lat, a.Lon)
	fmt.Fprintf(&b, "- CO2 concentration: %.2f ppm\n", a.CO2)
	fmt.Fprintf(&b, "- Deviation from regional background: %.2f ppm\n", a.Deviation)
	fmt.Fprintf(&b, "- Severity: %s\n", a.Severity)
	fmt.Fprintf(&b, "- Z-score: %.2f\n", a.ZScore)
	b.WriteString("\nWhat is the most plausible explanation for this anomaly?")
	return b.String()
}

// Package export renders a session snapshot as the flat CSV researchers
// pull into their analysis tools. Pure string building, no side effects.
package export

import (
	"strings"
	"time"
	_ "time/tzdata" // study timestamps are always rendered Pacific

	model "github.com/wozlab/woz-relay/internal/model/session"
)

const timestampLayout = "01/02/2006, 15:04:05"

var pacific = mustLoadPacific()

func mustLoadPacific() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		panic("export: load America/Los_Angeles: " + err.Error())
	}
	return loc
}

// Transcript renders one CSV row per transcript message, header first:
// timestamp,role,message,tone,imageName,notes.
func Transcript(s model.Session) string {
	lines := make([]string, 0, len(s.Transcript)+1)
	lines = append(lines, "timestamp,role,message,tone,imageName,notes")

	for _, m := range s.Transcript {
		fields := []string{
			escape(formatTimestamp(m.Timestamp)),
			string(m.Role),
			escape(m.Message),
			escape(m.Tone),
			escape(m.ImageName),
			escape(m.Notes),
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	return strings.Join(lines, "\n")
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).In(pacific).Format(timestampLayout)
}

// escape quote-wraps values containing a comma, quote, or line break and
// doubles internal quotes.
func escape(v string) string {
	escaped := strings.ReplaceAll(v, `"`, `""`)
	if strings.ContainsAny(v, "\",\n\r") {
		return `"` + escaped + `"`
	}
	return escaped
}

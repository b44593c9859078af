package color

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Bold   = "\033[1m"
)

// Color wraps text in ANSI escapes when enabled.
type Color struct {
	enabled bool
}

// New creates a colorizer. Color is only used when requested and stdout is a
// color-capable terminal.
func New(enabled bool) *Color {
	return &Color{enabled: enabled && shouldEnableColor()}
}

// Enabled reports whether escapes are emitted.
func (c *Color) Enabled() bool {
	return c.enabled
}

func shouldEnableColor() bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if t := os.Getenv("TERM"); t == "dumb" || t == "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func (c *Color) wrap(code, text string) string {
	if !c.enabled {
		return text
	}
	return code + text + Reset
}

// Add colors additions green.
func (c *Color) Add(text string) string { return c.wrap(Green, text) }

// Change colors modifications yellow.
func (c *Color) Change(text string) string { return c.wrap(Yellow, text) }

// Destroy colors deletions red.
func (c *Color) Destroy(text string) string { return c.wrap(Red, text) }

// Bold makes text bold.
func (c *Color) Bold(text string) string { return c.wrap(Bold, text) }

// Warning renders text bold red, for destructive changes.
func (c *Color) Warning(text string) string { return c.wrap(Bold+Red, text) }

// PlanSymbol returns the symbol for a plan action.
func (c *Color) PlanSymbol(action string) string {
	switch action {
	case "add", "create":
		return c.Add("+")
	case "change", "modify", "update":
		return c.Change("~")
	case "destroy", "drop", "delete":
		return c.Destroy("-")
	default:
		return " "
	}
}

func (c *Color) counts(added, modified, dropped int) string {
	return strings.Join([]string{
		c.Add(fmt.Sprintf("%d to add", added)),
		c.Change(fmt.Sprintf("%d to modify", modified)),
		c.Destroy(fmt.Sprintf("%d to drop", dropped)),
	}, ", ")
}

// FormatSummaryLine formats the counts of one object type. All three
// categories are shown even when zero.
func (c *Color) FormatSummaryLine(objectType string, added, modified, dropped int) string {
	return fmt.Sprintf("  %s: %s", objectType, c.counts(added, modified, dropped))
}

// FormatPlanHeader formats the overall plan header.
func (c *Color) FormatPlanHeader(added, modified, dropped int) string {
	return fmt.Sprintf("Plan: %s.", c.counts(added, modified, dropped))
}

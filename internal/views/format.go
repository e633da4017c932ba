package views

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DescriptionLimit is the gallery card description length
const DescriptionLimit = 120

// TotalCap is the largest total shown as an exact number
const TotalCap = 1000

var printer = message.NewPrinter(language.English)

// FormatNumber rounds f and groups thousands: 27580.9 -> "27,581"
func FormatNumber(f float64) string {
	return printer.Sprintf("%d", int64(math.Round(f)))
}

// FormatDistance renders a miss distance: under a million as grouped km,
// otherwise in millions with two decimals
func FormatDistance(km float64) string {
	if km < 1e6 {
		return FormatNumber(km) + " km"
	}
	return fmt.Sprintf("%.2f million km", km/1e6)
}

// DangerClass grades an approach: hazardous objects are "danger",
// approaches under a million km "warning", the rest "safe"
func DangerClass(km float64, hazardous bool) string {
	switch {
	case hazardous:
		return "danger"
	case km < 1e6:
		return "warning"
	default:
		return "safe"
	}
}

var parens = strings.NewReplacer("(", "", ")", "")

// CleanName strips the parentheses the feed puts around designations
func CleanName(name string) string {
	return strings.TrimSpace(parens.Replace(name))
}

// Truncate cuts s to n runes and appends "..." when it was longer
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// FormatTotal renders a hit count, capped at "1000+"
func FormatTotal(n int) string {
	if n > TotalCap {
		return fmt.Sprintf("%d+", TotalCap)
	}
	return fmt.Sprintf("%d", n)
}

// FormatCoord renders a latitude or longitude with four decimals
func FormatCoord(f float64) string {
	return fmt.Sprintf("%.4f", f)
}

// FormatTimestamp renders a unix timestamp as time of day (UTC)
func FormatTimestamp(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format("15:04:05")
}

// OriginalImage maps an image library preview URL to its full size rendition
func OriginalImage(preview string) string {
	return strings.Replace(preview, "thumb", "orig", 1)
}

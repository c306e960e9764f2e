package thumbnails

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const sizeUnits = "BKMGTP"

// FormatExecTime renders d as a wall clock reading, HH:MM:SS.d. Durations
// of a day or more wrap around.
func FormatExecTime(d time.Duration) string {
	secs, tenths, _ := strings.Cut(fmt.Sprintf("%.1f", d.Seconds()), ".")
	total, err := strconv.ParseInt(secs, 10, 64)
	if err != nil || total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d.%s", (total/3600)%24, (total/60)%60, total%60, tenths)
}

// FormatSize renders bytes with two decimals and a one letter unit. The
// unit is picked from the number of decimal digits of bytes, so 1000 bytes
// already show as 0.98K.
func FormatSize(bytes int64) string {
	factor := (len(strconv.FormatInt(bytes, 10)) - 1) / 3
	value := float64(bytes) / math.Pow(1024, float64(factor))

	unit := ""
	if factor < len(sizeUnits) {
		unit = sizeUnits[factor : factor+1]
	}
	return fmt.Sprintf("%.2f%s", value, unit)
}

package chrono

import (
	"time"
)

var taipei *time.Location

func init() {
	var err error
	taipei, err = time.LoadLocation("Asia/Taipei")
	if err != nil {
		// Taiwan has not observed DST since 1979, a fixed offset is exact for fieldwork dates.
		taipei = time.FixedZone("CST", 8*60*60)
	}
}

// Taipei returns a [*time.Location] for Asia/Taipei, the zone fieldwork dates are recorded in.
func Taipei() *time.Location {
	return taipei
}

// DayKey formats the calendar day of t, used to key date sets.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

package archive

import "time"

// timeNow is swapped in tests to pin archive dates.
var timeNow = time.Now

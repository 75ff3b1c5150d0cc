package deploy

import "time"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

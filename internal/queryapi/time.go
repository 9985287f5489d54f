package queryapi

import "time"

func currentDate() string { return time.Now().UTC().Format("2006-01-02") }

package commands

import (
	"strconv"
	"time"
)

//timeRounding keeps printed durations readable
const timeRounding = 10 * time.Millisecond

// helper functions for formatting floats and integers
func f(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
func i(i int64) string {
	return strconv.FormatInt(i, 10)
}

package util

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxWindow bounds from+size, the same as elasticsearch's default
	// index.max_result_window.
	MaxWindow = 10000
)

// Calculate turns a 1-based page into an offset. Pages past MaxWindow are
// clamped to the last reachable one.
func Calculate(page, size int) (from, limit int) {
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if last := (MaxWindow-size)/size + 1; page > last {
		page = last
	}
	from = (page - 1) * size
	return from, size
}

func ParseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func ParseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

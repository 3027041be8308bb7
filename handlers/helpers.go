package handlers

import "strconv"

// string -> int with a default when empty or unparsable
func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// paging reads ?page and ?size with the shared clamps.
func paging(pageStr, sizeStr string) (page, size int) {
	page = atoiOr(pageStr, 1)
	if page < 1 {
		page = 1
	}
	size = atoiOr(sizeStr, 20)
	if size < 1 {
		size = 1
	} else if size > 100 {
		size = 100
	}
	return page, size
}

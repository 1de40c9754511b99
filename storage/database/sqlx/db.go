// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"strconv"
	"strings"

	"github.com/tahanan-ph/tahanan/core"
)

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

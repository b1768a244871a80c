package database

import (
	"fmt"
	"strings"
)

// ConstructDatabaseURL joins a base server URL with a database name.
// An empty name returns the base URL untouched. sslmode=disable is
// appended when the URL does not already set an sslmode.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, hasQuery := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	if hasQuery {
		// A trailing slash may sit before the query string
		base = strings.TrimRight(base, "/")
	}

	databaseURL := fmt.Sprintf("%s/%s", base, databaseName)
	if hasQuery && query != "" {
		databaseURL += "?" + query
	}

	if !strings.Contains(databaseURL, "sslmode=") {
		separator := "&"
		if !strings.Contains(databaseURL, "?") {
			separator = "?"
		}
		databaseURL += separator + "sslmode=disable"
	}

	return databaseURL
}

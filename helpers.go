package pubforms

import (
	"sort"

	"github.com/labstack/echo/v4"
)

// isPartial reports whether the request came from forms.js and expects a
// fragment instead of a full page.
func isPartial(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

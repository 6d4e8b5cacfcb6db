package cache

import (
	"strings"
)

// ResultCache stores encoded aggregation reports in generations. Get reports
// the generation it looked in, and Set writes under that generation, so a
// report computed before an Invalidate is never served after it.
type ResultCache interface {
	Get(key string) (value []byte, generation int64, found bool, err error)
	Set(key string, generation int64, value []byte) error
	Invalidate() error
}

// Key joins the report name and its arguments into a cache key.
func Key(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + ":" + strings.Join(args, ":")
}

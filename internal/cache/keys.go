package cache

import (
	"fmt"
	"strings"

	"github.com/ShawnEdgell/aoe-builds-api/internal/builds"
)

// QueryKeyPrefix namespaces every cached query result. Invalidating this
// prefix after a refresh drops all filtered pages at once.
const QueryKeyPrefix = "builds:q:"

// QueryKey derives the cache key for one query. It is a pure function of
// the normalized parameters: identical requests always map to the same key,
// and any difference (even page number alone) produces a different key.
// Absent filters are omitted entirely while a present-but-empty search
// string keeps its token, so absence and empty string never collide.
func QueryKey(filters builds.FilterParams, p builds.PaginationParams) string {
	var sb strings.Builder
	sb.WriteString(QueryKeyPrefix)
	sb.WriteString("v1")

	if filters.BuildType != nil {
		sb.WriteString("|type=")
		sb.WriteString(string(*filters.BuildType))
	}
	if filters.Difficulty != nil {
		sb.WriteString("|diff=")
		sb.WriteString(string(*filters.Difficulty))
	}
	if filters.Query != nil {
		// Search is case-insensitive, so case variants are the same request.
		sb.WriteString("|q=")
		sb.WriteString(strings.ToLower(*filters.Query))
	}
	if filters.SortKey != builds.SortNone {
		dir := filters.SortDir
		if dir == "" {
			dir = builds.SortAsc
		}
		sb.WriteString("|sort=")
		sb.WriteString(string(filters.SortKey))
		sb.WriteString(":")
		sb.WriteString(string(dir))
	}

	fmt.Fprintf(&sb, "|page=%d|size=%d", p.Page, p.Size)
	return sb.String()
}

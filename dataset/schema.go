// Package dataset provides streaming ingestion of tabular incident data:
// schema-mapped column resolution, feature-vector engineering, and a
// bounded row buffer with transparent disk spillover.
package dataset

import (
	"strings"
)

// Canonical column roles. A schema map binds arbitrary source column names
// to these roles; unmapped roles fall back to a normalized header match.
const (
	RoleTimestamp = "timestamp"
	RoleLatitude  = "latitude"
	RoleLongitude = "longitude"
	RoleCategory  = "category"
	RoleRisk      = "risk"
	RoleLabel     = "label"
)

// SchemaMap maps a canonical role to the source column name that supplies
// it. Roles absent from the map are resolved by normalized header match.
type SchemaMap map[string]string

// violentCategories is the fixed category set used to derive a label when
// the source has no label column. Membership means label 1. The set is
// part of the pipeline contract: changing it changes every derived label.
var violentCategories = map[string]bool{
	"assault":           true,
	"battery":           true,
	"robbery":           true,
	"homicide":          true,
	"kidnapping":        true,
	"sex_offense":       true,
	"weapons_violation": true,
}

// NormalizeColumn canonicalizes a header cell: BOM stripped, whitespace
// trimmed, lower-cased, runs of non-alphanumerics collapsed to a single
// underscore, leading/trailing underscores removed.
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.TrimSpace(strings.ToLower(name))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// Columns is the result of resolving a header row against a schema map.
// An index of -1 means the role is not present in the source.
type Columns struct {
	Timestamp int
	Latitude  int
	Longitude int
	Category  int
	Risk      int
	Label     int
}

// Resolve locates each canonical role in the header. Explicit schema-map
// entries win; otherwise the normalized header cell must equal the role
// name.
func (m SchemaMap) Resolve(header []string) Columns {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeColumn(h)
	}

	find := func(role string) int {
		if source, ok := m[role]; ok {
			want := NormalizeColumn(source)
			for i, h := range normalized {
				if h == want {
					return i
				}
			}
		}
		for i, h := range normalized {
			if h == role {
				return i
			}
		}
		return -1
	}

	return Columns{
		Timestamp: find(RoleTimestamp),
		Latitude:  find(RoleLatitude),
		Longitude: find(RoleLongitude),
		Category:  find(RoleCategory),
		Risk:      find(RoleRisk),
		Label:     find(RoleLabel),
	}
}

// DeriveLabel computes a label for a row whose source has no label column.
// The rule is deterministic: category membership in the violent set wins;
// otherwise a risk value at or above 0.5 means label 1.
func DeriveLabel(category string, risk float64, hasRisk bool) int {
	if violentCategories[NormalizeColumn(category)] {
		return 1
	}
	if hasRisk && risk >= 0.5 {
		return 1
	}
	return 0
}

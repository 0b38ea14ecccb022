// v1
// internal/cache/keys.go
package cache

import "strings"

// AuditKey builds the cache key for one audit record.
func AuditKey(id string) string { return "audit_" + strings.TrimSpace(id) }

// MethodologyKey builds the cache key for one methodology version.
func MethodologyKey(version string) string { return "methodology_" + strings.TrimSpace(version) }

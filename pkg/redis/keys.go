package redis

import "strings"

// DefaultKeyspace prefixes every key the backend writes.
var DefaultKeyspace = Keyspace{Prefix: "fp"}

// Keyspace builds colon-separated keys under a shared prefix.
type Keyspace struct {
	Prefix string
}

func (k Keyspace) Idempotency(scope, id string) string {
	return k.join("idempotency", scope, id)
}

func (k Keyspace) Lock(name string) string {
	return k.join("lock", name)
}

func (k Keyspace) AccessSession(accessID string) string {
	return k.join("session", "access", accessID)
}

// join drops blank segments so an empty scope does not leave "::" behind.
func (k Keyspace) join(parts ...string) string {
	var b strings.Builder
	b.WriteString(k.Prefix)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(':')
		}
		b.WriteString(part)
	}
	return b.String()
}

package transport

import (
	"fmt"

	"github.com/IceFireDB/IceFireDB-Chord/ring"
)

// AddrFunc maps a ring id to a dialable host:port.
type AddrFunc func(id ring.ID) string

// AddrTemplate derives addresses from a fmt template such as "node_%d:1234".
func AddrTemplate(tmpl string) AddrFunc {
	return func(id ring.ID) string {
		return fmt.Sprintf(tmpl, uint64(id))
	}
}

// StaticAddrs looks ids up in addrs and falls back to fallback, which may be
// nil.
func StaticAddrs(addrs map[ring.ID]string, fallback AddrFunc) AddrFunc {
	return func(id ring.ID) string {
		if a, ok := addrs[id]; ok {
			return a
		}
		if fallback != nil {
			return fallback(id)
		}
		return ""
	}
}

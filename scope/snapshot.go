package scope

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Snapshot is the content returned by Context.Snapshot: a canonical
// serialization of the frozen variables and allow-list, plus the
// content hash that identifies it in the external KeyValueStore.
type Snapshot struct {
	Hash    string
	Payload []byte
}

// Snapshot produces a content-addressed snapshot of the Context's
// frozen variables and allow-list, suitable for storage in the
// external KeyValueStore keyed by Hash (§3 "a context snapshot is
// stored by content hash"). Snapshot does not require the Context to
// already be frozen; callers typically Freeze immediately before
// taking the snapshot a Step will observe.
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	payload := canonicalEncode(c.vars, c.allow)
	sum := sha256.Sum256(payload)
	return Snapshot{
		Hash:    hex.EncodeToString(sum[:]),
		Payload: payload,
	}
}

// canonicalEncode renders vars and allow in a deterministic byte form:
// sorted keys, stable field order. This is hand-rolled rather than
// encoding/json because map key order in Go's json encoder is already
// sorted for string-keyed maps, but the nested Value variant (sum
// type) needs explicit tag disambiguation that a generic marshaler
// would not give us for free; no third-party canonical-encoding
// library appears anywhere in the retrieval pack, so this is the one
// deliberate standard-library-only corner of the runtime (see
// DESIGN.md).
func canonicalEncode(vars map[string]Value, allow AllowList) []byte {
	var b strings.Builder
	b.WriteString("vars{")
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s;", k, encodeValue(vars[k]))
	}
	b.WriteString("}allow{cmd:")
	b.WriteString(joinSorted(setKeys(allow.Commands)))
	b.WriteString(";paths:")
	b.WriteString(joinSorted(append([]string(nil), allow.Paths...)))
	b.WriteString(";hosts:")
	b.WriteString(joinSorted(append([]string(nil), allow.NetworkHosts...)))
	b.WriteString(";env:")
	b.WriteString(joinSorted(setKeys(allow.EnvKeys)))
	b.WriteString("}")
	return []byte(b.String())
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func joinSorted(ss []string) string {
	sort.Strings(ss)
	return strings.Join(ss, ",")
}

func encodeValue(v Value) string {
	switch v.Kind {
	case KindString:
		return "s:" + v.Str
	case KindNumber:
		return fmt.Sprintf("n:%v", v.Num)
	case KindBool:
		return fmt.Sprintf("b:%v", v.Bool)
	case KindBytes:
		return "x:" + hex.EncodeToString(v.Bytes)
	case KindMap:
		var b strings.Builder
		b.WriteString("m{")
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s;", k, encodeValue(v.Map[k]))
		}
		b.WriteString("}")
		return b.String()
	default:
		return "?"
	}
}

// SnapshotID is a typed alias documenting that a string is a Snapshot
// content hash rather than an arbitrary key.
type SnapshotID = string

package scope

import (
	"path/filepath"
	"strings"
)

// canonicalPath normalizes a path for prefix matching: cleans `.`/`..`
// segments via filepath.Clean. Symbolic links are never resolved here —
// the permission check operates on the claimed path only; an external
// executor is responsible for refusing to follow symlinks out of the
// allowed tree, per §1's "describes the permission envelope an
// external executor must enforce."
func canonicalPath(p string) string {
	if p == "" {
		return p
	}
	return filepath.Clean(p)
}

// matchCommand reports whether cmd is present in the allow-list by
// exact token match (§4.1).
func matchCommand(allow AllowList, cmd string) bool {
	_, ok := allow.Commands[cmd]
	return ok
}

// matchPath reports whether path is permitted by longest-prefix match
// against the allow-list's canonical path prefixes.
func matchPath(allow AllowList, path string) bool {
	target := canonicalPath(path)
	best := -1
	for _, prefix := range allow.Paths {
		p := canonicalPath(prefix)
		if target == p || strings.HasPrefix(target, p+string(filepath.Separator)) || strings.HasPrefix(target, p+"/") {
			if len(p) > best {
				best = len(p)
			}
		}
	}
	return best >= 0
}

// matchHost reports whether host is permitted by suffix match.
func matchHost(allow AllowList, host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, pattern := range allow.NetworkHosts {
		p := strings.ToLower(pattern)
		if host == p || strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}

// matchEnvKey reports whether key is permitted by exact string match.
func matchEnvKey(allow AllowList, key string) bool {
	_, ok := allow.EnvKeys[key]
	return ok
}

// checkPermission evaluates one permission-check rule from §4.1. Any
// unmatched or unrecognized op is denied: ambiguity is denial.
func checkPermission(allow AllowList, op OpKind, target string) Decision {
	switch op {
	case OpCommand:
		if matchCommand(allow, target) {
			return Allow()
		}
		return Deny("command not in allow-list: " + target)
	case OpPath:
		if matchPath(allow, target) {
			return Allow()
		}
		return Deny("path not under any allowed prefix: " + target)
	case OpNetworkHost:
		if matchHost(allow, target) {
			return Allow()
		}
		return Deny("host not in allow-list: " + target)
	case OpEnvKey:
		if matchEnvKey(allow, target) {
			return Allow()
		}
		return Deny("env key not in allow-list: " + target)
	default:
		return Deny("unrecognized operation kind")
	}
}

// Narrows reports whether child is a subset-or-equal of parent,
// element-wise, for every allow-list dimension — Invariant CTX-1.
func Narrows(parent, child AllowList) bool {
	for c := range child.Commands {
		if _, ok := parent.Commands[c]; !ok {
			return false
		}
	}
	for c := range child.EnvKeys {
		if _, ok := parent.EnvKeys[c]; !ok {
			return false
		}
	}
	for _, cp := range child.Paths {
		if !matchPath(parent, cp) {
			return false
		}
	}
	for _, ch := range child.NetworkHosts {
		if !matchHost(parent, ch) {
			return false
		}
	}
	return true
}

// Disjoint reports whether two allow-lists share no path prefix and no
// host pattern intersection — the condition §4.2 requires for two
// sibling sub-intents to execute in parallel.
func Disjoint(a, b AllowList) bool {
	for _, pa := range a.Paths {
		for _, pb := range b.Paths {
			ca, cb := canonicalPath(pa), canonicalPath(pb)
			if ca == cb || strings.HasPrefix(ca, cb+"/") || strings.HasPrefix(cb, ca+"/") {
				return false
			}
		}
	}
	for _, ha := range a.NetworkHosts {
		for _, hb := range b.NetworkHosts {
			la, lb := strings.ToLower(ha), strings.ToLower(hb)
			if la == lb || strings.HasSuffix(la, "."+lb) || strings.HasSuffix(lb, "."+la) {
				return false
			}
		}
	}
	return true
}

package acl

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/graphvault/core/internal/types"
)

// Canonicalize dedupe, sort, serialize, hash. An
// empty entry set is the "public" sentinel and canonicalizes to a nil
// acl_id, never an interned row.
func Canonicalize(entries []types.ACLEntry) (canon []types.ACLEntry, hash string, public bool) {
	if len(entries) == 0 {
		return nil, "", true
	}

	seen := make(map[string]types.ACLEntry, len(entries))
	for _, e := range entries {
		seen[entryKey(e)] = e
	}

	canon = make([]types.ACLEntry, 0, len(seen))
	for _, e := range seen {
		canon = append(canon, e)
	}
	sort.Slice(canon, func(i, j int) bool {
		return entryKey(canon[i]) < entryKey(canon[j])
	})

	lines := make([]string, len(canon))
	for i, e := range canon {
		lines[i] = entryKey(e)
	}
	serialized := strings.Join(lines, "\n")
	sum := sha256.Sum256([]byte(serialized))
	return canon, hex.EncodeToString(sum[:]), false
}

func entryKey(e types.ACLEntry) string {
	return string(e.PrincipalType) + "|" + e.PrincipalID + "|" + string(e.Permission)
}

// ResolveSpec applies the creator-write inheritance rule.
// specProvided == false means "absent" (creator gets implicit write); a
// provided, empty spec means "public" (nil is returned); a provided,
// non-empty spec is used as-is plus the creator-write entry if not
// already present.
func ResolveSpec(spec []types.ACLEntry, specProvided bool, creatorID string) []types.ACLEntry {
	creatorWrite := types.ACLEntry{PrincipalType: types.PrincipalUser, PrincipalID: creatorID, Permission: types.PermWrite}

	if !specProvided {
		return []types.ACLEntry{creatorWrite}
	}
	if len(spec) == 0 {
		return nil
	}
	out := make([]types.ACLEntry, len(spec))
	copy(out, spec)
	for _, e := range spec {
		if e == creatorWrite {
			return out
		}
	}
	return append(out, creatorWrite)
}

// UpwardClosure returns the set of stored permissions that satisfy a
// required permission: write grants read.
func UpwardClosure(required types.Permission) []types.Permission {
	if required == types.PermWrite {
		return []types.Permission{types.PermWrite}
	}
	return []types.Permission{types.PermRead, types.PermWrite}
}

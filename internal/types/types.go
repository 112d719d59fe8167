// Package types holds the row-level data model shared by every core
// package: entities, links, types, ACLs, groups, and the opaque caller
// identity the core receives from its auth collaborator.
package types

// Kind distinguishes entities from links; both are "chains" of
// immutable versions linked by PreviousVersionID.
type Kind string

const (
	KindEntity Kind = "entity"
	KindLink   Kind = "link"
)

// TypeCategory mirrors Kind but is the vocabulary used by the Type row
// itself.
type TypeCategory string

const (
	CategoryEntity TypeCategory = "entity"
	CategoryLink   TypeCategory = "link"
)

// Properties is a free-form JSON property bag, decoded eagerly so callers
// never deal with raw bytes.
type Properties map[string]any

// Type is a named classification for entities or links; its name and
// category are fixed once created.
type Type struct {
	ID          string
	Name        string
	Category    TypeCategory
	Description string
	JSONSchema  string // raw JSON schema text, collaborator-validated
	CreatedAt   int64
	CreatedBy   string
}

// Row is a single version of an entity or link chain. Entities
// and links share this shape; links additionally populate Source/Target.
type Row struct {
	ID                string
	Kind              Kind
	TypeID            string
	Properties        Properties
	Version           int
	PreviousVersionID string // empty for version 1
	CreatedAt         int64
	CreatedBy         string
	IsDeleted         bool
	IsLatest          bool
	ACLID             *int64 // nil means public

	// Link-only fields; zero value for entities.
	SourceEntityID string
	TargetEntityID string
}

// IsLink reports whether the row represents a link version.
func (r *Row) IsLink() bool { return r.Kind == KindLink }

// PrincipalType tags an ACL entry / group member as naming a user or a
// group.
type PrincipalType string

const (
	PrincipalUser  PrincipalType = "user"
	PrincipalGroup PrincipalType = "group"
)

// Permission is the access level an ACL entry grants.
type Permission string

const (
	PermRead  Permission = "read"
	PermWrite Permission = "write"
)

// ACLEntry is one grant within an ACL.
type ACLEntry struct {
	PrincipalType PrincipalType
	PrincipalID   string
	Permission    Permission
}

// ACLEntrySpec is the wire-level shape an ACL get/set exchanges with the
// HTTP collaborator, before principal enrichment.
type ACLEntrySpec struct {
	PrincipalType PrincipalType `json:"principal_type"`
	PrincipalID   string        `json:"principal_id"`
	Permission    Permission    `json:"permission"`
}

// ACL is an interned, hash-addressed bundle of entries.
type ACL struct {
	ID        int64
	Hash      string
	CreatedAt int64
}

// Group is a named collection of users and/or other groups.
type Group struct {
	ID          string
	Name        string
	Description string
	CreatedAt   int64
	CreatedBy   string
}

// GroupMember is one edge in the group-membership graph: member is
// contained by group.
type GroupMember struct {
	GroupID    string
	MemberType PrincipalType
	MemberID   string
	CreatedAt  int64
	CreatedBy  string
}

// Caller is the opaque identity the core receives from its auth
// collaborator. UserID == "" means anonymous.
type Caller struct {
	UserID  string
	IsAdmin bool
}

// Anonymous reports whether the caller is unauthenticated.
func (c Caller) Anonymous() bool { return c.UserID == "" }

// DiffEntry captures one property-level change between two versions.
type DiffEntry struct {
	Old any
	New any
}

// Diff is the result of comparing two consecutive versions' property maps.
type Diff struct {
	Added   map[string]any       `json:"added"`
	Removed map[string]any       `json:"removed"`
	Changed map[string]DiffEntry `json:"changed"`
}

// VersionWithDiff pairs a chain row with the diff against its predecessor.
// Diff is nil for version 1.
type VersionWithDiff struct {
	Row  *Row
	Diff *Diff
}

// Neighbor is one hop's result from a graph traversal: the peer entity
// plus the link that connects it to the subject.
type Neighbor struct {
	Entity *Row
	Link   *Row
	// Outbound is true when Link.SourceEntityID is the traversal subject.
	Outbound bool
}

// PathStep is one entity/link pair along a reconstructed path. LinkID is
// empty for the starting step.
type PathStep struct {
	EntityID string
	LinkID   string // empty for the start step
}

// VisitedEntity is one node discovered by a bounded BFS,
// carrying every distinct path that reached it when return_paths is set.
type VisitedEntity struct {
	Entity *Row
	Depth  int
	Paths  [][]PathStep
}

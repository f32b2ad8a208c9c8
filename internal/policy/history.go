package policy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

// VersionEntry is one content-addressed snapshot of a policy's rule body,
// grounded on original_source's PolicyHistory/PolicyVersion
// (policy_history.rs, policy_version.rs): every edit is hashed so a
// no-op write is rejected outright, and a rollback is recorded as a new
// version pointing at old content rather than rewriting history.
type VersionEntry struct {
	Version           string
	ContentHash       string
	Spec              any
	Author            string
	CreatedAt         time.Time
	ChangeDescription string
	ParentVersion     string // empty for the first version
	IsMajor           bool
}

// History tracks every version of one policy's rule body, independent of
// Policy.Lifecycle.Revisions (which records free-text edit summaries, not
// content hashes or enforced version bumps).
type History struct {
	PolicyID string
	Versions []VersionEntry
}

// NewHistory creates a History seeded with version 1.0.0 of spec.
func NewHistory(policyID string, spec any, author string, now time.Time) (*History, error) {
	hash, err := contentHash(spec)
	if err != nil {
		return nil, err
	}
	return &History{
		PolicyID: policyID,
		Versions: []VersionEntry{{
			Version:           "1.0.0",
			ContentHash:       hash,
			Spec:              spec,
			Author:            author,
			CreatedAt:         now,
			ChangeDescription: "initial policy version",
			IsMajor:           true,
		}},
	}, nil
}

// Current returns the most recently added version.
func (h *History) Current() VersionEntry {
	return h.Versions[len(h.Versions)-1]
}

// HasChanged reports whether spec's content hash differs from the current
// version's, mirroring PolicyVersionManager::has_changed.
func (h *History) HasChanged(spec any) (bool, error) {
	hash, err := contentHash(spec)
	if err != nil {
		return false, err
	}
	return hash != h.Current().ContentHash, nil
}

// AddVersion appends a new version for spec, incrementing the major (X.0.0)
// or patch (x.y.Z+1) component of the current semver. Unchanged content is
// rejected with KindNoPolicyChange rather than silently no-opping, so a
// caller can't accidentally believe a version bump happened.
func (h *History) AddVersion(spec any, author, changeDescription string, major bool, now time.Time) (VersionEntry, error) {
	hash, err := contentHash(spec)
	if err != nil {
		return VersionEntry{}, err
	}
	current := h.Current()
	if hash == current.ContentHash {
		return VersionEntry{}, governance.New(governance.KindNoPolicyChange,
			"policy "+h.PolicyID+" content is unchanged from version "+current.Version)
	}

	entry := VersionEntry{
		Version:           incrementSemver(current.Version, major),
		ContentHash:       hash,
		Spec:              spec,
		Author:            author,
		CreatedAt:         now,
		ChangeDescription: changeDescription,
		ParentVersion:     current.Version,
		IsMajor:           major,
	}
	h.Versions = append(h.Versions, entry)
	return entry, nil
}

// Rollback appends a new version carrying targetVersion's content, so the
// chain always reads forward: a rollback is a new event, never a rewrite of
// history already handed out in an audit export.
func (h *History) Rollback(targetVersion, actor, reason string, now time.Time) (VersionEntry, error) {
	target, ok := h.find(targetVersion)
	if !ok {
		return VersionEntry{}, governance.New(governance.KindVersionNotFound,
			"no such version of policy "+h.PolicyID+": "+targetVersion)
	}
	return h.AddVersion(target.Spec, actor, "rollback to "+targetVersion+": "+reason, false, now)
}

func (h *History) find(version string) (VersionEntry, bool) {
	for _, v := range h.Versions {
		if v.Version == version {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// incrementSemver bumps version's major or patch component. A malformed
// current version (not three dot-separated integers) restarts at 1.0.0,
// matching original_source's fallback in generate_version_number.
func incrementSemver(version string, major bool) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "1.0.0"
	}
	maj, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	patch, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "1.0.0"
	}
	if major {
		return fmt.Sprintf("%d.0.0", maj+1)
	}
	return fmt.Sprintf("%d.%d.%d", maj, min, patch+1)
}

// contentHash computes the SHA-256 hash of spec's canonical JSON encoding.
// Hashing via stdlib crypto/sha256 matches internal/audit/hash.go: there is
// no idiomatic third-party SHA-256 replacement in this pack.
func contentHash(spec any) (string, error) {
	canon, err := canonicalSpecJSON(spec)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalSpecJSON produces a deterministic byte representation of spec,
// the same sorted-key, no-HTML-escaping, no-trailing-newline approach as
// internal/audit.canonicalJSON, duplicated here rather than exported across
// packages for a four-line helper.
func canonicalSpecJSON(spec any) ([]byte, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Package protocol identifies the wire protocol a binary was built with.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/automoto/physnet/shared/messages"
)

// Revision is bumped whenever message semantics change without changing layouts.
const Revision = 1

var (
	versionOnce sync.Once
	version     uint64
)

// Layout returns the canonical description of the message table that the
// protocol version is derived from.
func Layout() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "rev:%d;", Revision)
	for _, t := range messages.Types() {
		fmt.Fprintf(&sb, "%d:%s:%d;", uint8(t), t, t.Size())
	}
	return sb.String()
}

// Version is the game version sent in PlayerJoinRequest. Two binaries can talk
// to each other if and only if their versions match.
func Version() uint64 {
	versionOnce.Do(func() {
		version = xxh3.HashString(Layout())
	})
	return version
}

// Compatible reports whether a peer's announced version matches ours.
func Compatible(peerVersion uint64) bool {
	return peerVersion == Version()
}

// VersionString is Version in hex, as listed by the master server.
func VersionString() string {
	return strconv.FormatUint(Version(), 16)
}

package graph

import (
	"log/slog"
	"time"
)

// DefaultResourceRoot is the first path segment of a resolved item path.
const DefaultResourceRoot = "drives"

// ItemPath is a Graph drive-item address of the form
// /<resource-root>/<drive-id>/root:<suffix>. The field is unexported so
// callers outside this package can only obtain one from ResolveWebURL or
// RootItemPath.
type ItemPath struct {
	p string
}

// String returns the Graph path, ready to be appended to the base URL.
func (p ItemPath) String() string {
	return p.p
}

// IsZero reports whether p was never resolved.
func (p ItemPath) IsZero() bool {
	return p.p == ""
}

// RootItemPath addresses a file under the signed-in user's own drive
// (/drive/root:/<rel>). Used by the standalone OneDrive provider.
func RootItemPath(rel string) ItemPath {
	if rel == "" || rel[0] != '/' {
		rel = "/" + rel
	}

	return ItemPath{p: "/drive/root:" + encodePathSegments(rel)}
}

// Item is the subset of a driveItem needed to load, stat, and save a
// database file. Fields are normalized from the Graph API response.
type Item struct {
	ID         string
	Name       string
	Size       int64
	ETag       string
	CTag       string
	IsFolder   bool
	ModifiedAt time.Time
	// DownloadURL is pre-authenticated and ephemeral. Never log it.
	DownloadURL DownloadURL
}

// DriveEntry is one document library returned by the site drives listing.
type DriveEntry struct {
	ID     string `json:"id"`
	WebURL string `json:"webUrl"`
}

// DownloadURL is a pre-authenticated URL. It implements slog.LogValuer so
// the embedded token is redacted when the value reaches a log line.
type DownloadURL string

// LogValue implements slog.LogValuer.
func (u DownloadURL) LogValue() slog.Value {
	if u == "" {
		return slog.StringValue("")
	}

	return slog.StringValue("[REDACTED]")
}

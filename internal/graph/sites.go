package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
)

// Resolver errors.
var (
	ErrInvalidURL         = errors.New("graph: invalid URL")
	ErrCollectionNotFound = errors.New("graph: collection not found")
)

// webURLPattern decomposes a document-library file URL into host, site
// segment (/sites/<name>), collection, and file suffix.
var webURLPattern = regexp.MustCompile(`https://([^/]+)(/[^/]+/[^/]+)/([^/]+)(/.+\.kdbx)`)

// webURLParts holds the four captures of webURLPattern.
type webURLParts struct {
	host       string
	site       string
	collection string
	suffix     string
}

// parseWebURL splits raw into its captures. Any empty capture is an error.
func parseWebURL(raw string) (webURLParts, error) {
	m := webURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return webURLParts{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	parts := webURLParts{host: m[1], site: m[2], collection: m[3], suffix: m[4]}
	if parts.host == "" || parts.site == "" || parts.collection == "" || parts.suffix == "" {
		return webURLParts{}, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	return parts, nil
}

// libraryURL is the canonical webUrl Graph reports for the collection.
func (p webURLParts) libraryURL() string {
	return "https://" + p.host + p.site + "/" + p.collection
}

type siteDrivesResponse struct {
	Value []DriveEntry `json:"value"`
}

// ResolveWebURL converts a SharePoint file URL such as
// https://contoso.sharepoint.com/sites/IT/Accounts/IT.kdbx into the Graph
// item path /<resourceRoot>/<drive-id>/root:/IT.kdbx.
//
// A malformed URL fails with ErrInvalidURL before any request is sent. A
// listing without a drive whose webUrl equals the library URL exactly fails
// with ErrCollectionNotFound. Transport errors are returned unchanged.
// Nothing is cached: every call performs its own lookup.
func (c *Client) ResolveWebURL(ctx context.Context, rawURL, resourceRoot string) (ItemPath, error) {
	parts, err := parseWebURL(rawURL)
	if err != nil {
		return ItemPath{}, err
	}

	if resourceRoot == "" {
		resourceRoot = DefaultResourceRoot
	}

	drives, err := c.SiteDrives(ctx, parts.host, parts.site)
	if err != nil {
		return ItemPath{}, err
	}

	want := parts.libraryURL()
	for _, d := range drives {
		if d.WebURL == want {
			p := ItemPath{p: "/" + resourceRoot + "/" + d.ID + "/root:" + parts.suffix}

			c.logger.Debug("resolved web URL",
				slog.String("collection", parts.collection),
				slog.String("item_path", p.String()),
			)

			return p, nil
		}
	}

	return ItemPath{}, fmt.Errorf("%w: %q", ErrCollectionNotFound, parts.collection)
}

// SiteDrives lists the document libraries of a site, selecting only the id
// and webUrl fields. The listing is a single request; failures are not
// retried.
func (c *Client) SiteDrives(ctx context.Context, host, site string) ([]DriveEntry, error) {
	apiPath := "/sites/" + host + ":" + site + ":/drives?$select=id,webUrl"

	resp, err := c.DoOnce(ctx, http.MethodGet, apiPath, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sdr siteDrivesResponse
	if err := json.NewDecoder(resp.Body).Decode(&sdr); err != nil {
		return nil, fmt.Errorf("graph: decoding site drives response: %w", err)
	}

	return sdr.Value, nil
}

package acmeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Directory holds the URLs and metadata advertised by an ACME realm's
// directory resource (spec.md §3 "Directory").
type Directory struct {
	NewNonce   string `json:"newNonce,omitempty"`
	NewAccount string `json:"newAccount"`
	NewOrder   string `json:"newOrder"`

	Meta DirectoryMeta `json:"meta,omitempty"`
}

// DirectoryMeta is the "meta" subobject of the directory resource.
type DirectoryMeta struct {
	TermsOfServiceURL       string `json:"termsOfService,omitempty"`
	ExternalAccountRequired bool   `json:"externalAccountRequired,omitempty"`
}

// directoryCache fetches and memoizes a realm's directory resource. It
// satisfies spec.md §4.2/testable-property-5 ("Directory singleton"): once
// cached, a Directory is never re-fetched, and concurrent callers racing to
// populate an empty cache collapse onto a single HTTP request.
//
// The teacher (api.go's getDirectory/getDirp/setDirp) hand-rolls this
// collapsing with a dirMutex plus atomic.Value double-checked locking.
// golang.org/x/sync/singleflight expresses the same invariant directly.
type directoryCache struct {
	url string

	cached atomic.Value // *Directory
	group  singleflight.Group

	fetch func(ctx context.Context, url string) (*Directory, error)
}

func newDirectoryCache(url string, fetch func(ctx context.Context, url string) (*Directory, error)) *directoryCache {
	return &directoryCache{url: url, fetch: fetch}
}

func (d *directoryCache) get(ctx context.Context) (*Directory, error) {
	if v, _ := d.cached.Load().(*Directory); v != nil {
		return v, nil
	}

	v, err, _ := d.group.Do(d.url, func() (interface{}, error) {
		if v, _ := d.cached.Load().(*Directory); v != nil {
			return v, nil
		}
		dir, err := d.fetch(ctx, d.url)
		if err != nil {
			return nil, err
		}
		d.cached.Store(dir)
		return dir, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Directory), nil
}

// fetchDirectory performs the actual GET against directoryURL and validates
// that the required endpoints are present.
func (c *Client) fetchDirectory(ctx context.Context, url string) (*Directory, error) {
	res, body, err := c.rawRequest(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	if err := classifyResponse(res, body); err != nil {
		return nil, err
	}

	var dir Directory
	if err := json.Unmarshal(body, &dir); err != nil {
		return nil, wrapError(ErrKindUndecodable, err)
	}
	if dir.NewAccount == "" || dir.NewOrder == "" {
		return nil, newError(ErrKindOther, fmt.Sprintf("acmeclient: directory at %s is missing required endpoints", url))
	}

	return &dir, nil
}

func (c *Client) getDirectory(ctx context.Context) (*Directory, error) {
	return c.dirCache.get(ctx)
}

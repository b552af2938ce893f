package apiclient

import (
	"net/http"
	"net/url"

	"github.com/seaward-io/seaward/pkg/token"
)

// TokenResult is a fetched token together with its version hash.
type TokenResult struct {
	Record token.Record
	Hash   string
}

// UpdateResult is the outcome of a create-or-update call.
type UpdateResult struct {
	Message string
	Record  token.Record
	Hash    string
}

// GetToken fetches one token. includeMetadata adds the system metadata
// fields; includeDeleted makes soft-deleted tokens visible.
func (c *Client) GetToken(name string, includeMetadata, includeDeleted bool) (*TokenResult, error) {
	query := url.Values{}
	query.Set("token", name)
	addIncludes(query, includeMetadata, includeDeleted)

	var rec token.Record
	header, err := c.do(http.MethodGet, "/token", query, nil, nil, &rec)
	if err != nil {
		return nil, err
	}
	return &TokenResult{Record: rec, Hash: header.Get("ETag")}, nil
}

// UpdateToken creates or updates a token. ifMatch, when non-empty, is the
// expected version hash; admin selects the administrative update mode.
func (c *Client) UpdateToken(name string, body token.Record, ifMatch string, admin bool) (*UpdateResult, error) {
	query := url.Values{}
	query.Set("token", name)
	if admin {
		query.Set("update-mode", "admin")
	}
	headers := map[string]string{}
	if ifMatch != "" {
		headers["If-Match"] = ifMatch
	}

	var resp struct {
		Message string       `json:"message"`
		Record  token.Record `json:"service-description"`
	}
	header, err := c.do(http.MethodPost, "/token", query, headers, body, &resp)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{
		Message: resp.Message,
		Record:  resp.Record,
		Hash:    header.Get("ETag"),
	}, nil
}

// DeleteToken removes a token: a soft delete by default, a hard delete
// (administrators only) when hard is set.
func (c *Client) DeleteToken(name, ifMatch string, hard bool) (string, error) {
	query := url.Values{}
	query.Set("token", name)
	if hard {
		query.Set("hard-delete", "true")
	}
	headers := map[string]string{}
	if ifMatch != "" {
		headers["If-Match"] = ifMatch
	}

	var resp struct {
		Message string `json:"message"`
	}
	if _, err := c.do(http.MethodDelete, "/token", query, headers, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ListOptions narrow a token listing.
type ListOptions struct {
	// Owners restricts the listing to the given owners.
	Owners []string

	// IncludeDeleted includes soft-deleted tokens.
	IncludeDeleted bool

	// IncludeMetadata adds etag, deleted, and last-update-time to each
	// entry.
	IncludeMetadata bool

	// CanManageAs keeps only tokens the given user could manage.
	CanManageAs string

	// Filters keeps only tokens whose named parameter matches one of the
	// given values.
	Filters map[string][]string
}

// ListTokens enumerates tokens visible through the owner index.
func (c *Client) ListTokens(opts ListOptions) ([]map[string]any, error) {
	query := url.Values{}
	for _, owner := range opts.Owners {
		query.Add("owner", owner)
	}
	addIncludes(query, opts.IncludeMetadata, opts.IncludeDeleted)
	if opts.CanManageAs != "" {
		query.Set("can-manage-as-user", opts.CanManageAs)
	}
	for name, values := range opts.Filters {
		for _, v := range values {
			query.Add(name, v)
		}
	}

	var entries []map[string]any
	if _, err := c.do(http.MethodGet, "/tokens", query, nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListOwners returns the owner directory: owner name to index shard key.
func (c *Client) ListOwners() (map[string]string, error) {
	var dir map[string]string
	if _, err := c.do(http.MethodGet, "/token-owners", nil, nil, nil, &dir); err != nil {
		return nil, err
	}
	return dir, nil
}

// Reindex triggers a full rebuild of the owner index and returns the
// number of tokens indexed.
func (c *Client) Reindex() (int, error) {
	var resp struct {
		Message string `json:"message"`
		Tokens  int    `json:"tokens"`
	}
	if _, err := c.do(http.MethodPost, "/tokens/reindex", nil, nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Tokens, nil
}

func addIncludes(query url.Values, metadata, deleted bool) {
	if metadata {
		query.Add("include", "metadata")
	}
	if deleted {
		query.Add("include", "deleted")
	}
}

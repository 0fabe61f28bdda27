package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ResourceQuery contains options for listing resources
type ResourceQuery struct {
	Category  string
	Search    string
	Favorites bool
	Limit     int
	Offset    int
}

// ListResources retrieves the resource library
func (c *Client) ListResources(ctx context.Context, opts ResourceQuery) ([]*Resource, error) {
	q := query{}
	q.set("category", opts.Category)
	q.set("search", opts.Search)
	if opts.Favorites {
		q.set("favorites", "true")
	}
	q.setInt("limit", opts.Limit)
	q.setInt("offset", opts.Offset)

	var result struct {
		Resources []*Resource `json:"resources"`
	}
	if err := c.call(ctx, http.MethodGet, q.encode("/api/v1/resources"), nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// GetResource retrieves a resource by ID
func (c *Client) GetResource(ctx context.Context, id string) (*Resource, error) {
	var r Resource
	if err := c.call(ctx, http.MethodGet, "/api/v1/resources/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateResource adds a resource (admin only)
func (c *Client) CreateResource(ctx context.Context, in ResourceInput) (*Resource, error) {
	var r Resource
	if err := c.call(ctx, http.MethodPost, "/api/v1/resources", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateResource replaces the editable fields of a resource (admin only)
func (c *Client) UpdateResource(ctx context.Context, id string, in ResourceInput) (*Resource, error) {
	var r Resource
	if err := c.call(ctx, http.MethodPut, "/api/v1/resources/"+url.PathEscape(id), in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteResource removes a resource (admin only)
func (c *Client) DeleteResource(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/resources/"+url.PathEscape(id), nil, nil)
}

// SetFavorite marks or unmarks a resource for the signed-in user
func (c *Client) SetFavorite(ctx context.Context, id string, favorite bool) (*Resource, error) {
	method := http.MethodPut
	if !favorite {
		method = http.MethodDelete
	}
	var r Resource
	if err := c.call(ctx, method, "/api/v1/resources/"+url.PathEscape(id)+"/favorite", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListCategories retrieves all resource categories
func (c *Client) ListCategories(ctx context.Context) ([]*ResourceCategory, error) {
	var result struct {
		Categories []*ResourceCategory `json:"categories"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/categories", nil, &result); err != nil {
		return nil, err
	}
	return result.Categories, nil
}

// CreateCategory adds a category (admin only)
func (c *Client) CreateCategory(ctx context.Context, name, description string) (*ResourceCategory, error) {
	in := map[string]string{"name": name, "description": description}
	var cat ResourceCategory
	if err := c.call(ctx, http.MethodPost, "/api/v1/categories", in, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// DiagnosticCatalog retrieves the questionnaires
func (c *Client) DiagnosticCatalog(ctx context.Context) (*Catalog, error) {
	var cat Catalog
	if err := c.call(ctx, http.MethodGet, "/api/v1/diagnostics/catalog", nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// SubmitStress scores a stress questionnaire
func (c *Client) SubmitStress(ctx context.Context, answers Answers) (*DiagnosticResult, error) {
	var r DiagnosticResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/diagnostics/stress", DiagnosticSubmission{Answers: answers}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SubmitHolmesRahe scores a life events questionnaire
func (c *Client) SubmitHolmesRahe(ctx context.Context, answers Answers) (*HolmesRaheResult, error) {
	var r HolmesRaheResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/diagnostics/holmes-rahe", DiagnosticSubmission{Answers: answers}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DiagnosticHistory retrieves the signed-in user's past results
func (c *Client) DiagnosticHistory(ctx context.Context, limit int) ([]*DiagnosticResult, error) {
	path := "/api/v1/diagnostics/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var result struct {
		Results []*DiagnosticResult `json:"results"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// ListPages retrieves the published info pages
func (c *Client) ListPages(ctx context.Context) ([]*InfoPage, error) {
	var result struct {
		Pages []*InfoPage `json:"pages"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/pages", nil, &result); err != nil {
		return nil, err
	}
	return result.Pages, nil
}

// GetPage retrieves a page by id or slug
func (c *Client) GetPage(ctx context.Context, ref string) (*InfoPage, error) {
	var p InfoPage
	if err := c.call(ctx, http.MethodGet, "/api/v1/pages/"+url.PathEscape(ref), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListUsers searches accounts (admin only)
func (c *Client) ListUsers(ctx context.Context, search string) ([]*User, error) {
	q := query{}
	q.set("q", search)
	var result struct {
		Users []*User `json:"users"`
	}
	if err := c.call(ctx, http.MethodGet, q.encode("/api/v1/users"), nil, &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

// SetUserAdmin grants or removes admin rights (admin only)
func (c *Client) SetUserAdmin(ctx context.Context, id string, admin bool) (*User, error) {
	var u User
	in := map[string]bool{"isAdmin": admin}
	if err := c.call(ctx, http.MethodPut, "/api/v1/users/"+url.PathEscape(id)+"/admin", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

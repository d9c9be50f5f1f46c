// Package posclient is an HTTP client for the POS provider's REST API.
// Response types mirror the provider's wire format and are independently
// defined; they never leak into the local store.
package posclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrVersionStale = errors.New("version conflict")
)

// IsTransient reports whether an error from the client is worth retrying.
// Rate limits, server errors, and network failures are transient; auth
// failures and bad requests are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionStale) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status >= 500
	}
	// Anything else is a network-level failure.
	return true
}

// Client is an HTTP client for the POS API.
type Client struct {
	BaseURL     string
	AccessToken string
	HTTP        *http.Client
}

// New creates a new POS client.
func New(baseURL, accessToken string) *Client {
	return &Client{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Shared types ---

// Money is an amount in the currency's smallest unit (cents for AUD).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// Location is a POS business location.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Timezone string `json:"timezone,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// --- Catalog types ---

// ItemVariation is a sellable variation of a catalog item. The first
// variation carries the item's price.
type ItemVariation struct {
	ID         string `json:"id"`
	Version    int64  `json:"version,omitempty"`
	Name       string `json:"name,omitempty"`
	PriceMoney *Money `json:"price_money,omitempty"`
}

// ItemData is the payload of an ITEM catalog object.
type ItemData struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Variations  []ItemVariation `json:"variations,omitempty"`
}

// CatalogObject is one versioned object in the POS catalog. Version is the
// provider's optimistic-concurrency token; an upsert with a stale version
// fails with ErrVersionStale.
type CatalogObject struct {
	ID                   string            `json:"id"`
	Type                 string            `json:"type"`
	Version              int64             `json:"version,omitempty"`
	IsDeleted            bool              `json:"is_deleted,omitempty"`
	PresentAtLocationIDs []string          `json:"present_at_location_ids,omitempty"`
	ItemData             *ItemData         `json:"item_data,omitempty"`
	CustomAttributes     map[string]string `json:"custom_attributes,omitempty"`
}

// ListCatalogResponse is one page of catalog objects.
type ListCatalogResponse struct {
	Objects []CatalogObject `json:"objects"`
	Cursor  string          `json:"cursor,omitempty"`
}

type upsertCatalogRequest struct {
	Object *CatalogObject `json:"object"`
}

type catalogObjectResponse struct {
	Object *CatalogObject `json:"object"`
}

// --- Team member types ---

// TeamMember is a staff record on the POS side.
type TeamMember struct {
	ID             string `json:"id,omitempty"`
	GivenName      string `json:"given_name,omitempty"`
	FamilyName     string `json:"family_name,omitempty"`
	EmailAddress   string `json:"email_address,omitempty"`
	Status         string `json:"status,omitempty"`
	AssignmentType string `json:"assignment_type,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	IsOwner        bool   `json:"is_owner,omitempty"`
}

// TeamMember status values.
const (
	TeamMemberActive     = "ACTIVE"
	TeamMemberInactive   = "INACTIVE"
	TeamMemberTerminated = "TERMINATED"
)

// TeamMember assignment types.
const (
	AssignmentManager  = "MANAGER"
	AssignmentEmployee = "EMPLOYEE"
)

type searchTeamMembersRequest struct {
	Query  *teamMemberQuery `json:"query,omitempty"`
	Cursor string           `json:"cursor,omitempty"`
	Limit  int              `json:"limit,omitempty"`
}

type teamMemberQuery struct {
	Statuses    []string `json:"statuses,omitempty"`
	LocationIDs []string `json:"location_ids,omitempty"`
}

// SearchTeamMembersResponse is one page of team members.
type SearchTeamMembersResponse struct {
	TeamMembers []TeamMember `json:"team_members"`
	Cursor      string       `json:"cursor,omitempty"`
}

type teamMemberRequest struct {
	TeamMember *TeamMember `json:"team_member"`
}

type teamMemberResponse struct {
	TeamMember *TeamMember `json:"team_member"`
}

// --- Order types ---

// OrderLineItem is one sold line in an order.
type OrderLineItem struct {
	CatalogObjectID string `json:"catalog_object_id"`
	Name            string `json:"name,omitempty"`
	Quantity        int    `json:"quantity"`
	TotalMoney      *Money `json:"total_money,omitempty"`
}

// Order is a completed or in-flight POS order.
type Order struct {
	ID         string          `json:"id"`
	LocationID string          `json:"location_id"`
	State      string          `json:"state"`
	ClosedAt   string          `json:"closed_at,omitempty"`
	LineItems  []OrderLineItem `json:"line_items,omitempty"`
}

// Order states.
const (
	OrderCompleted = "COMPLETED"
	OrderOpen      = "OPEN"
	OrderCanceled  = "CANCELED"
)

// SearchOrdersQuery filters an order search by location, state, and
// closed-at window (RFC 3339 timestamps).
type SearchOrdersQuery struct {
	LocationIDs  []string `json:"location_ids"`
	State        string   `json:"state,omitempty"`
	ClosedAfter  string   `json:"closed_after,omitempty"`
	ClosedBefore string   `json:"closed_before,omitempty"`
}

type searchOrdersRequest struct {
	Query  *SearchOrdersQuery `json:"query"`
	Cursor string             `json:"cursor,omitempty"`
	Limit  int                `json:"limit,omitempty"`
}

// SearchOrdersResponse is one page of orders.
type SearchOrdersResponse struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor,omitempty"`
}

// --- Health ---

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Ping hits the /healthz endpoint to verify reachability and credentials.
func (c *Client) Ping() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do("GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Location methods ---

// ListLocations lists the merchant's business locations.
func (c *Client) ListLocations() ([]Location, error) {
	var resp struct {
		Locations []Location `json:"locations"`
	}
	if err := c.do("GET", "/v2/locations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

// --- Catalog methods ---

// ListCatalog fetches one page of ITEM catalog objects. Pass an empty cursor
// for the first page.
func (c *Client) ListCatalog(cursor string) (*ListCatalogResponse, error) {
	params := url.Values{}
	params.Set("types", "ITEM")
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp ListCatalogResponse
	if err := c.do("GET", "/v2/catalog/list?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAllCatalog follows cursors until the catalog is exhausted.
func (c *Client) ListAllCatalog() ([]CatalogObject, error) {
	var all []CatalogObject
	cursor := ""
	for {
		page, err := c.ListCatalog(cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Objects...)
		if page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}

// RetrieveCatalogObject fetches a single catalog object by id.
func (c *Client) RetrieveCatalogObject(objectID string) (*CatalogObject, error) {
	var resp catalogObjectResponse
	if err := c.do("GET", "/v2/catalog/object/"+url.PathEscape(objectID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Object, nil
}

// UpsertCatalogObject creates or updates a catalog object. For updates the
// object must carry the current Version; the server rejects stale writes
// with ErrVersionStale.
func (c *Client) UpsertCatalogObject(obj *CatalogObject) (*CatalogObject, error) {
	var resp catalogObjectResponse
	if err := c.do("POST", "/v2/catalog/object", &upsertCatalogRequest{Object: obj}, &resp); err != nil {
		return nil, err
	}
	return resp.Object, nil
}

// --- Team member methods ---

// SearchTeamMembers fetches one page of team members matching the given
// statuses (all statuses when empty).
func (c *Client) SearchTeamMembers(statuses []string, cursor string) (*SearchTeamMembersResponse, error) {
	req := &searchTeamMembersRequest{Cursor: cursor}
	if len(statuses) > 0 {
		req.Query = &teamMemberQuery{Statuses: statuses}
	}

	var resp SearchTeamMembersResponse
	if err := c.do("POST", "/v2/team-members/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchAllTeamMembers follows cursors until the roster is exhausted.
func (c *Client) SearchAllTeamMembers(statuses []string) ([]TeamMember, error) {
	var all []TeamMember
	cursor := ""
	for {
		page, err := c.SearchTeamMembers(statuses, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.TeamMembers...)
		if page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}

// CreateTeamMember creates a staff record on the POS side.
func (c *Client) CreateTeamMember(tm *TeamMember) (*TeamMember, error) {
	var resp teamMemberResponse
	if err := c.do("POST", "/v2/team-members", &teamMemberRequest{TeamMember: tm}, &resp); err != nil {
		return nil, err
	}
	return resp.TeamMember, nil
}

// UpdateTeamMember updates an existing staff record.
func (c *Client) UpdateTeamMember(teamMemberID string, tm *TeamMember) (*TeamMember, error) {
	var resp teamMemberResponse
	path := "/v2/team-members/" + url.PathEscape(teamMemberID)
	if err := c.do("PUT", path, &teamMemberRequest{TeamMember: tm}, &resp); err != nil {
		return nil, err
	}
	return resp.TeamMember, nil
}

// --- Order methods ---

// SearchOrders fetches one page of orders matching the query.
func (c *Client) SearchOrders(query *SearchOrdersQuery, cursor string) (*SearchOrdersResponse, error) {
	req := &searchOrdersRequest{Query: query, Cursor: cursor}
	var resp SearchOrdersResponse
	if err := c.do("POST", "/v2/orders/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchAllOrders follows cursors until the result set is exhausted.
func (c *Client) SearchAllOrders(query *SearchOrdersQuery) ([]Order, error) {
	var all []Order
	cursor := ""
	for {
		page, err := c.SearchOrders(query, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Orders...)
		if page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}

// --- HTTP helpers ---

// apiError is the standard error body from the POS API.
type apiError struct {
	status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (c *Client) do(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var msg string
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			msg = apiErr.Message
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrForbidden, msg)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrVersionStale, msg)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, msg)
		default:
			if apiErr.Code != "" {
				apiErr.status = resp.StatusCode
				return &apiErr
			}
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// Package client is the storefront's client side: a typed REST client, a
// local mirror of server state kept fresh by polling, and a persisted cart.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/catalog"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/settings"
)

// StatusError is a non-2xx answer from the server. Any other error returned
// by API means the request never got an answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// IsTransportError reports whether err means the server was not reached.
func IsTransportError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	return !errors.As(err, &statusErr)
}

type CheckoutRequest struct {
	UserID          string              `json:"userId"`
	UserName        string              `json:"userName"`
	UserPhone       string              `json:"userPhone"`
	Items           []order.Item        `json:"items"`
	PaymentMethod   order.PaymentMethod `json:"paymentMethod"`
	DeliveryAddress string              `json:"deliveryAddress,omitempty"`
}

type orderFilter struct {
	UserID string `url:"userId,omitempty"`
}

type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, timeout time.Duration) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (a *API) ListOrders(ctx context.Context, userID string) ([]order.Order, error) {
	params, err := query.Values(orderFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("client: failed to encode filter: %w", err)
	}
	path := "/orders"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var orders []order.Order
	if err := a.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (a *API) CreateOrder(ctx context.Context, req CheckoutRequest) (*order.Order, error) {
	var created order.Order
	if err := a.do(ctx, http.MethodPost, "/orders", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (a *API) UpdateOrder(ctx context.Context, id string, req order.UpdateRequest) (*order.Order, error) {
	var updated order.Order
	if err := a.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id), req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (a *API) DeleteOrder(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(id), nil, nil)
}

func (a *API) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := a.do(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// AddProduct sends the product without ratings; those are only written
// through RateProduct.
func (a *API) AddProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error) {
	body := struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Category    string  `json:"category"`
		Price       float64 `json:"price"`
		Image       string  `json:"image"`
		Description string  `json:"description"`
		Brand       string  `json:"brand"`
		InStock     bool    `json:"inStock"`
	}{p.ID, p.Name, p.Category, p.Price, p.Image, p.Description, p.Brand, p.InStock}

	var created catalog.Product
	if err := a.do(ctx, http.MethodPost, "/products", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (a *API) DeleteProduct(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil)
}

func (a *API) UpdateProduct(ctx context.Context, id string, patch catalog.ProductPatch) (*catalog.Product, error) {
	var updated catalog.Product
	if err := a.do(ctx, http.MethodPatch, "/products/"+url.PathEscape(id), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (a *API) RateProduct(ctx context.Context, id, userID string, rating int) (*catalog.Product, error) {
	body := struct {
		UserID string `json:"userId"`
		Rating int    `json:"rating"`
	}{userID, rating}

	var updated catalog.Product
	if err := a.do(ctx, http.MethodPost, "/products/"+url.PathEscape(id)+"/ratings", body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (a *API) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := a.do(ctx, http.MethodGet, "/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (a *API) AddCategory(ctx context.Context, c catalog.Category) (*catalog.Category, error) {
	var created catalog.Category
	if err := a.do(ctx, http.MethodPost, "/categories", c, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteCategory returns how many products the server moved to the
// fallback category.
func (a *API) DeleteCategory(ctx context.Context, id string) (int, error) {
	var resp struct {
		Reassigned int `json:"reassigned"`
	}
	if err := a.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Reassigned, nil
}

func (a *API) UpdateCategory(ctx context.Context, id string, patch catalog.CategoryPatch) (*catalog.Category, error) {
	var updated catalog.Category
	if err := a.do(ctx, http.MethodPatch, "/categories/"+url.PathEscape(id), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (a *API) GetConfig(ctx context.Context) (*settings.Document, error) {
	var doc settings.Document
	if err := a.do(ctx, http.MethodGet, "/config", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (a *API) PutConfig(ctx context.Context, doc settings.Document) error {
	return a.do(ctx, http.MethodPut, "/config", doc, nil)
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorBody struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &errorBody) != nil || errorBody.Error == "" {
			errorBody.Error = strings.TrimSpace(string(raw))
		}
		return &StatusError{Code: resp.StatusCode, Message: errorBody.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

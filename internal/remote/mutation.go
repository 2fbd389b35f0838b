package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// IdempotencyHeader carries the caller-supplied idempotency key.
const IdempotencyHeader = "Idempotency-Key"

// Result describes a completed mutation.
type Result struct {
	Status int
	// Duplicate is true when an idempotent mutation had already been applied.
	Duplicate bool
}

type mutationOptions struct {
	idempotencyKey string
	returning      interface{}
}

// MutationOption configures Insert, Update, Upsert and RPC.
type MutationOption func(*mutationOptions)

// WithIdempotencyKey makes the mutation idempotent: repeating it with the same
// key is a no-op. A unique-violation response is reported as success with
// Result.Duplicate set instead of an error.
func WithIdempotencyKey(key string) MutationOption {
	return func(o *mutationOptions) { o.idempotencyKey = key }
}

// WithReturning decodes the written rows into dest.
func WithReturning(dest interface{}) MutationOption {
	return func(o *mutationOptions) { o.returning = dest }
}

func applyMutationOptions(opts []MutationOption) mutationOptions {
	var o mutationOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o mutationOptions) header(prefer ...string) http.Header {
	h := http.Header{}
	if o.returning != nil {
		prefer = append(prefer, "return=representation")
	} else {
		prefer = append(prefer, "return=minimal")
	}
	for _, p := range prefer {
		h.Add("Prefer", p)
	}
	if o.idempotencyKey != "" {
		h.Set(IdempotencyHeader, o.idempotencyKey)
	}
	return h
}

// finish converts the outcome of a mutation into a Result.
func (o mutationOptions) finish(op, table string, resp *http.Response, err error) (*Result, error) {
	if err != nil {
		if o.idempotencyKey != "" && IsDuplicate(err) {
			var e *Error
			errors.As(err, &e)
			return &Result{Status: e.Status, Duplicate: true}, nil
		}
		return nil, fmt.Errorf("%s %s: %w", op, table, err)
	}
	return &Result{Status: resp.StatusCode}, nil
}

// Insert adds rows (a struct, map or slice of them) to table.
func (c *Client) Insert(ctx context.Context, table string, rows interface{}, opts ...MutationOption) (*Result, error) {
	o := applyMutationOptions(opts)
	body, err := jsonBody(rows)
	if err != nil {
		return nil, err
	}
	resp, err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + "/" + table,
		body:   body,
		header: o.header(),
	}, o.returning)
	return o.finish("insert", table, resp, err)
}

// Update sets values on every row matching all filters. At least one filter
// is required.
func (c *Client) Update(ctx context.Context, table string, values interface{}, filters []Filter, opts ...MutationOption) (*Result, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("update %s: at least one filter is required", table)
	}
	o := applyMutationOptions(opts)
	body, err := jsonBody(values)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	for _, f := range filters {
		q.Add(f.Column, f.value())
	}
	resp, err := c.doJSON(ctx, request{
		method: http.MethodPatch,
		path:   restPrefix + "/" + table,
		query:  q,
		body:   body,
		header: o.header(),
	}, o.returning)
	return o.finish("update", table, resp, err)
}

// Upsert inserts rows or merges them into existing rows that collide on the
// onConflict columns (comma separated).
func (c *Client) Upsert(ctx context.Context, table string, rows interface{}, onConflict string, opts ...MutationOption) (*Result, error) {
	o := applyMutationOptions(opts)
	body, err := jsonBody(rows)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if onConflict != "" {
		q.Set("on_conflict", onConflict)
	}
	resp, err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + "/" + table,
		query:  q,
		body:   body,
		header: o.header("resolution=merge-duplicates"),
	}, o.returning)
	return o.finish("upsert", table, resp, err)
}

// RPC calls a server-side procedure. Balance-changing operations go through
// here so the backend validates them. dest may be nil.
func (c *Client) RPC(ctx context.Context, name string, params interface{}, dest interface{}, opts ...MutationOption) (*Result, error) {
	o := applyMutationOptions(opts)
	if params == nil {
		params = map[string]interface{}{}
	}
	body, err := jsonBody(params)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if o.idempotencyKey != "" {
		header.Set(IdempotencyHeader, o.idempotencyKey)
	}
	resp, err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + "/rpc/" + name,
		body:   body,
		header: header,
	}, dest)
	return o.finish("rpc", name, resp, err)
}

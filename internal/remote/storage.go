package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Upload stores body at bucket/objectPath. Existing objects are not replaced.
func (c *Client) Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := http.Header{}
	header.Set("x-upsert", "false")
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        storagePrefix + "/object/" + bucket + "/" + escapeObjectPath(objectPath),
		body:        body,
		contentType: contentType,
		header:      header,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, objectPath, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// PublicURL returns the public URL of an object in a public bucket.
func (c *Client) PublicURL(bucket, objectPath string) string {
	return c.baseURL + storagePrefix + "/object/public/" + bucket + "/" + escapeObjectPath(objectPath)
}

func escapeObjectPath(p string) string {
	parts := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

package crm

import (
	"context"
	"net/http"
	"net/url"
)

type tagsRequest struct {
	Tags []string `json:"tags"`
}

func (c *Client) AddTags(ctx context.Context, contactID string, tags []string) error {
	return c.do(ctx, http.MethodPost, tagsPath(contactID), nil, tagsRequest{Tags: tags}, nil)
}

func (c *Client) RemoveTags(ctx context.Context, contactID string, tags []string) error {
	return c.do(ctx, http.MethodDelete, tagsPath(contactID), nil, tagsRequest{Tags: tags}, nil)
}

func tagsPath(contactID string) string {
	return "/contacts/" + url.PathEscape(contactID) + "/tags"
}

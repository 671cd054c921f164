package youtube

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"

	"github.com/sboros/pimsync/internal/google"
	"github.com/sboros/pimsync/internal/retry"
	"github.com/sboros/pimsync/internal/syncer"
)

// Item is one video entry in a playlist.
type Item struct {
	// ID is the playlist item id, needed to remove the entry.
	ID      string
	VideoID string
	Title   string
}

// URL returns the watch URL handed to the downloader command.
func (i Item) URL() string {
	return "https://www.youtube.com/watch?v=" + i.VideoID
}

// Client wraps the YouTube Data API for playlist access.
type Client struct {
	svc    *youtube.Service
	logger *slog.Logger
	retry  retry.Policy
}

// NewClient creates a YouTube client authenticated with the Google config
// file's stored token.
func NewClient(ctx context.Context, configPath string, logger *slog.Logger, policy retry.Policy) (*Client, error) {
	httpClient, err := google.HTTPClient(ctx, configPath)
	if err != nil {
		return nil, err
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Client{svc: svc, logger: logger, retry: policy}, nil
}

// PlaylistByName resolves a playlist of the authenticated account by
// title, paging through the full playlist list.
func (c *Client) PlaylistByName(ctx context.Context, name string) (string, error) {
	pageToken := ""
	for {
		call := c.svc.Playlists.List([]string{"snippet"}).Mine(true).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var page *youtube.PlaylistListResponse
		err := c.retry.Do(ctx, "list playlists", func() error {
			var err error
			page, err = call.Do()
			return err
		})
		if err != nil {
			return "", err
		}

		for _, playlist := range page.Items {
			if playlist.Snippet != nil && playlist.Snippet.Title == name {
				return playlist.Id, nil
			}
		}
		if page.NextPageToken == "" {
			return "", &syncer.DataError{Detail: "no such playlist: " + name}
		}
		pageToken = page.NextPageToken
	}
}

// Items lists all entries of a playlist in playlist order.
func (c *Client) Items(ctx context.Context, playlistID string) ([]Item, error) {
	var items []Item
	pageToken := ""
	for {
		call := c.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(50).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var page *youtube.PlaylistItemListResponse
		err := c.retry.Do(ctx, "list playlist items", func() error {
			var err error
			page, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, entry := range page.Items {
			item := Item{ID: entry.Id}
			if entry.ContentDetails != nil {
				item.VideoID = entry.ContentDetails.VideoId
			}
			if entry.Snippet != nil {
				item.Title = entry.Snippet.Title
			}
			items = append(items, item)
		}
		if page.NextPageToken == "" {
			return items, nil
		}
		pageToken = page.NextPageToken
	}
}

// Remove deletes an entry from the playlist after a successful download.
func (c *Client) Remove(ctx context.Context, itemID string) error {
	return c.retry.Do(ctx, "remove playlist item", func() error {
		return c.svc.PlaylistItems.Delete(itemID).Context(ctx).Do()
	})
}

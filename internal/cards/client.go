package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://db.ygoprodeck.com/api/v7"

// Card is a resolved guessing target. Image is set for card lookups,
// Emoji for archetype lookups.
type Card struct {
	Name  string
	Desc  string
	Image image.Image
	Emoji []string
}

// Client resolves card names against the card database API.
type Client struct {
	http    *http.Client
	baseURL string
	log     zerolog.Logger
}

func NewClient(httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: defaultBaseURL,
		log:     logger,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string, logger zerolog.Logger) *Client {
	c := NewClient(httpClient, logger)
	c.baseURL = baseURL
	return c
}

type cardInfoResponse struct {
	Error string `json:"error"`
	Data  []struct {
		Name   string `json:"name"`
		Desc   string `json:"desc"`
		Images []struct {
			CroppedURL string `json:"image_url_cropped"`
		} `json:"card_images"`
	} `json:"data"`
}

// Resolve looks up a card by (partial) name. It returns (nil, nil) when the
// search word does not identify exactly one card: a miss, an API error
// payload and an ambiguous result (two or more hits) are all treated the
// same way.
func (c *Client) Resolve(ctx context.Context, name string) (*Card, error) {
	endpoint := c.baseURL + "/cardinfo.php?fname=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build card request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch card data: %w", err)
	}
	defer resp.Body.Close()

	var payload cardInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode card data: %w", err)
	}
	if payload.Error != "" || len(payload.Data) != 1 {
		return nil, nil
	}

	data := payload.Data[0]
	if data.Name == "" || data.Desc == "" || len(data.Images) == 0 {
		return nil, nil
	}
	imageURL := data.Images[0].CroppedURL
	if imageURL == "" {
		return nil, nil
	}

	img, err := c.fetchImage(ctx, imageURL)
	if err != nil {
		c.log.Error().Err(err).Str("card", data.Name).Msg("failed to fetch card image")
		return nil, nil
	}

	return &Card{Name: data.Name, Desc: data.Desc, Image: img}, nil
}

func (c *Client) fetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode card image: %w", err)
	}
	return img, nil
}

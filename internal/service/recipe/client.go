// Package recipe looks up recipes for a set of ingredients through the
// Spoonacular findByIngredients API.
package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultNumber is the number of recipes requested when the caller gives none.
const DefaultNumber = 2

// ErrNoIngredients is returned when a lookup has nothing to search for.
var ErrNoIngredients = errors.New("no ingredients given")

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("recipe API key not configured")

// Client calls the recipe provider and returns its JSON untouched.
type Client struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

// NewClient creates a client for the findByIngredients endpoint at baseURL.
func NewClient(baseURL, apiKey string, client *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Client{baseURL: u, apiKey: apiKey, client: client}, nil
}

// FindByIngredients returns up to number recipes using the given ingredients.
func (c *Client) FindByIngredients(ctx context.Context, ingredients []string, number int) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	cleaned := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			cleaned = append(cleaned, ing)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoIngredients
	}

	if number <= 0 {
		number = DefaultNumber
	}

	u := *c.baseURL
	q := u.Query()
	q.Set("ingredients", strings.Join(cleaned, ","))
	q.Set("number", strconv.Itoa(number))
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recipe provider status code: %d, body: %s", response.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("recipe provider returned invalid JSON")
	}

	return json.RawMessage(body), nil
}

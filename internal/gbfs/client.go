package gbfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bysykkel/bysykkel/internal/provider/resilience"
)

const (
	// DefaultInformationURL is the Oslo Bysykkel station_information feed.
	DefaultInformationURL = "https://gbfs.urbansharing.com/oslobysykkel.no/station_information.json"

	// DefaultStatusURL is the Oslo Bysykkel station_status feed.
	DefaultStatusURL = "https://gbfs.urbansharing.com/oslobysykkel.no/station_status.json"

	// ProviderName identifies this provider in the resilient client.
	ProviderName = "gbfs"

	// clientIdentifierHeader is the header urbansharing asks API clients to send.
	clientIdentifierHeader = "Client-Identifier"

	// maxBodySize caps how much of a feed response is read.
	maxBodySize = 32 << 20
)

// TransportError is returned when a feed could not be fetched: the request
// failed, the circuit breaker is open, or the server did not answer 200.
type TransportError struct {
	Feed       string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s from %s: unexpected status %d", e.Feed, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s from %s: %v", e.Feed, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the feed client.
type ClientConfig struct {
	// InformationURL is the station_information.json URL (defaults to DefaultInformationURL).
	InformationURL string

	// StatusURL is the station_status.json URL (defaults to DefaultStatusURL).
	StatusURL string

	// ClientIdentifier is sent as the Client-Identifier header when set,
	// e.g. "mycompany-stationboard".
	ClientIdentifier string

	// HTTPClient executes the requests. If nil, a resilient client is created.
	HTTPClient HTTPDoer

	// Timeout for individual requests of the default client (default: 10s).
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client fetches and parses the two GBFS feeds of one network.
type Client struct {
	informationURL   string
	statusURL        string
	clientIdentifier string
	httpClient       HTTPDoer
	logger           zerolog.Logger
}

// NewClient creates a feed client.
func NewClient(cfg ClientConfig) *Client {
	informationURL := cfg.InformationURL
	if informationURL == "" {
		informationURL = DefaultInformationURL
	}
	statusURL := cfg.StatusURL
	if statusURL == "" {
		statusURL = DefaultStatusURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		rc.Logger = cfg.Logger
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		informationURL:   informationURL,
		statusURL:        statusURL,
		clientIdentifier: cfg.ClientIdentifier,
		httpClient:       httpClient,
		logger:           cfg.Logger,
	}
}

// FetchStationInformation fetches and parses station_information.json.
func (c *Client) FetchStationInformation(ctx context.Context) (StationInformationFeed, error) {
	return fetch[StationInformationFeed](ctx, c, c.informationURL)
}

// FetchStationStatus fetches and parses station_status.json.
func (c *Client) FetchStationStatus(ctx context.Context) (StationStatusFeed, error) {
	return fetch[StationStatusFeed](ctx, c, c.statusURL)
}

func fetch[T Feed](ctx context.Context, c *Client, url string) (T, error) {
	var zero T
	name := zero.FeedName()

	body, err := c.get(ctx, name, url)
	if err != nil {
		return zero, err
	}

	feed, err := Parse[T](body)
	if err != nil {
		return zero, err
	}

	c.logger.Debug().
		Str("feed", name).
		Int("bytes", len(body)).
		Msg("feed fetched")

	return feed, nil
}

// get returns the body of a 200 response from url.
func (c *Client) get(ctx context.Context, feed, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &TransportError{Feed: feed, URL: url, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if c.clientIdentifier != "" {
		req.Header.Set(clientIdentifierHeader, c.clientIdentifier)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Feed: feed, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Feed: feed, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Feed: feed, URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}

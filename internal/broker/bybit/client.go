// Package bybit adapts the Bybit v5 API to the broker interface the
// pipeline consumes. Numeric tickets are minted locally and mapped to
// Bybit order IDs, since the rest of the pipeline addresses trades by
// ticket.
package bybit

import (
	"context"
	"strconv"
	"sync"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

const demoBaseURL = "https://api-demo.bybit.com"

// Config holds the Bybit connection settings.
type Config struct {
	APIKey    string
	APISecret string
	Category  string // "linear" or "spot"
	Testnet   bool
	Demo      bool
}

// Client is a Bybit-backed broker.
type Client struct {
	httpClient *bybit_api.Client
	category   string
	testnet    bool
	demo       bool

	mu         sync.Mutex
	connected  bool
	nextTicket int64
	orders     map[int64]string // ticket -> bybit orderId
}

// NewClient builds a disconnected client. Demo takes precedence over
// Testnet when both are set.
func NewClient(config Config) *Client {
	var baseURL string
	if config.Demo {
		baseURL = demoBaseURL
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	category := config.Category
	if category == "" {
		category = "linear"
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		category:   category,
		testnet:    config.Testnet,
		demo:       config.Demo,
		nextTicket: time.Now().Unix(),
		orders:     make(map[int64]string),
	}
}

// Connect verifies the API is reachable by fetching the server-side
// account snapshot once.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.GetAccountInfo(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Name reports the broker and its environment.
func (c *Client) Name() string {
	if c.demo {
		return "bybit-demo"
	}
	if c.testnet {
		return "bybit-testnet"
	}
	return "bybit"
}

func (c *Client) mintTicket(orderID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextTicket++
	ticket := c.nextTicket
	c.orders[ticket] = orderID
	return ticket
}

func (c *Client) orderIDFor(ticket int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.orders[ticket]
	return id, ok
}

func (c *Client) forgetTicket(ticket int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, ticket)
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

package rpc

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// retryBackoff describes the base delay between attempts. The n-th retry waits n times this duration.
const retryBackoff = 100 * time.Millisecond

// ClientPool spreads blocking JSON-RPC requests over a fixed set of clients dialed to the same endpoint, in
// round-robin order. Each request is bounded by a timeout and may be attempted more than once.
type ClientPool struct {
	rpcClients       []*rpc.Client
	currentClientIdx int
	clientLock       sync.Mutex

	endpoint       string
	attempts       int
	requestTimeout time.Duration
}

// NewClientPool dials poolSize clients to endpoint. Each request made through the pool is attempted up to attempts
// times, and every attempt is abandoned after requestTimeout. A non-positive requestTimeout disables the timeout.
func NewClientPool(ctx context.Context, endpoint string, poolSize int, attempts int, requestTimeout time.Duration) (*ClientPool, error) {
	if poolSize <= 0 {
		return nil, errors.Errorf("client pool size must be positive, got %d", poolSize)
	}

	// dial out
	clients := make([]*rpc.Client, 0, poolSize)
	for i := 0; i < poolSize; i++ {
		client, err := rpc.DialContext(ctx, endpoint)
		if err != nil {
			for _, dialed := range clients {
				dialed.Close()
			}
			return nil, errors.Wrapf(err, "unable to dial %s", endpoint)
		}
		clients = append(clients, client)
	}

	return newClientPoolFromClients(endpoint, clients, attempts, requestTimeout), nil
}

// newClientPoolFromClients creates a ClientPool over clients which were already dialed.
func newClientPoolFromClients(endpoint string, clients []*rpc.Client, attempts int, requestTimeout time.Duration) *ClientPool {
	if attempts <= 0 {
		attempts = 1
	}
	return &ClientPool{
		rpcClients:     clients,
		endpoint:       endpoint,
		attempts:       attempts,
		requestTimeout: requestTimeout,
	}
}

// Endpoint returns the endpoint the pool was dialed to.
func (c *ClientPool) Endpoint() string {
	return c.endpoint
}

// ExecuteRequestBlocking calls method with args on the next client in the pool and decodes the response into
// result, which must be a pointer. Failed attempts are retried with a linear back-off until the pool's attempt count
// is exhausted, in which case the last error is returned. Cancellation of ctx stops any further attempts.
func (c *ClientPool) ExecuteRequestBlocking(ctx context.Context, result any, method string, args ...any) error {
	client := c.getClient()

	var err error
	attempts := 0
	for attempts < c.attempts {
		if attempts > 0 {
			select {
			case <-time.After(time.Duration(attempts) * retryBackoff):
			case <-ctx.Done():
				return errors.Wrapf(err, "%s abandoned after %d attempt(s)", method, attempts)
			}
		}

		attempts++
		err = c.call(ctx, client, result, method, args...)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Wrapf(err, "%s failed after %d attempt(s)", method, attempts)
}

// call performs a single attempt of a request, bounded by the pool's request timeout.
func (c *ClientPool) call(ctx context.Context, client *rpc.Client, result any, method string, args ...any) error {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}
	return client.CallContext(ctx, result, method, args...)
}

// getClient returns the next client in round-robin order.
func (c *ClientPool) getClient() *rpc.Client {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()

	client := c.rpcClients[c.currentClientIdx]
	c.currentClientIdx = (c.currentClientIdx + 1) % len(c.rpcClients)

	return client
}

// Close closes every client in the pool.
func (c *ClientPool) Close() {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()

	for _, client := range c.rpcClients {
		client.Close()
	}
}

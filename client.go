package memphis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/memphisdev/memphis.go/pkg/concurrency"
	"github.com/memphisdev/memphis.go/pkg/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const defaultPort = 6666

// Option configures a Client at connect time.
type Option func(*clientOptions)

type clientOptions struct {
	port           int
	accountID      string
	credsFile      string
	token          string
	connectTimeout time.Duration
	pingInterval   time.Duration
	requestTimeout time.Duration
	reconnectWait  time.Duration
	maxReconnects  int
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		port:           defaultPort,
		accountID:      "1",
		connectTimeout: 5 * time.Second,
		pingInterval:   time.Second,
		requestTimeout: 5 * time.Second,
		reconnectWait:  2 * time.Second,
		maxReconnects:  -1,
	}
}

// WithPort overrides the broker's client-connection port (default 6666).
func WithPort(port int) Option {
	return func(o *clientOptions) { o.port = port }
}

// WithAccountID sets the multi-tenant account id embedded in the connect
// username (default "1").
func WithAccountID(id string) Option {
	return func(o *clientOptions) { o.accountID = id }
}

// WithCredsFile configures NATS user credentials file authentication
// instead of username/password.
func WithCredsFile(path string) Option {
	return func(o *clientOptions) { o.credsFile = path }
}

// WithToken configures token authentication instead of username/password.
func WithToken(token string) Option {
	return func(o *clientOptions) { o.token = token }
}

// WithRequestTimeout overrides the control-plane request-reply timeout
// (default 5s).
func WithRequestTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.requestTimeout = d }
}

// Client is the process-wide connection handle: transport, connection
// identity, and the control-plane request/notification surface every
// Station/Producer/Consumer is built from.
type Client struct {
	transport     controlTransport
	js            jetstreamContext
	nc            *nats.Conn
	connectionID  string
	username      string
	reqTimeout    time.Duration
	mu            *concurrency.SmartRWMutex
	closed        bool
	sdkUpdatesSub *nats.Subscription
}

// Connect dials the broker and returns a ready-to-use Client.
//
// The connection name is "<connectionId>::<user>"; the client first tries
// user "<user>$<accountId>" and, if the broker rejects it with an
// "authorization violation" (the legacy self-hosted, non-multi-tenant
// path), retries once with the bare user.
func Connect(host, username, password string, opts ...Option) (*Client, error) {
	cfg := defaultClientOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	connectionID := uuid.NewString()
	connName := fmt.Sprintf("%s::%s", connectionID, username)
	url := fmt.Sprintf("nats://%s:%d", host, cfg.port)

	base := []nats.Option{
		nats.Name(connName),
		nats.PingInterval(cfg.pingInterval),
		nats.Timeout(cfg.connectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(cfg.reconnectWait),
		nats.MaxReconnects(cfg.maxReconnects),
	}

	authOpt, user := authOption(cfg, username, password)
	nc, err := nats.Connect(url, append(base, authOpt)...)
	if err != nil && user != "" && strings.Contains(err.Error(), "authorization violation") {
		logger.L().Warn("memphis: multi-tenant auth rejected, retrying with bare username", "user", user)
		nc, err = nats.Connect(url, append(base, nats.UserInfo(username, password))...)
	}
	if err != nil {
		return nil, ErrTransport(err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, ErrTransport(err)
	}

	c := &Client{
		transport:    nc,
		js:           js,
		nc:           nc,
		connectionID: connectionID,
		username:     username,
		reqTimeout:   cfg.requestTimeout,
		mu:           concurrency.NewSmartRWMutex(concurrency.MutexConfig{Name: "memphis.Client"}),
	}

	c.subscribeSDKUpdates()

	return c, nil
}

func authOption(cfg clientOptions, username, password string) (nats.Option, string) {
	switch {
	case cfg.credsFile != "":
		return nats.UserCredentials(cfg.credsFile), ""
	case cfg.token != "":
		return nats.Token(cfg.token), ""
	default:
		user := username + "$" + cfg.accountID
		return nats.UserInfo(user, password), user
	}
}

// subscribeSDKUpdates keeps a live, do-nothing subscription on the broker's
// SDK-presence tracking subject. The broker uses subscriber counts on this
// subject to know which connections are active SDK clients; the payload
// itself carries nothing this client acts on.
func (c *Client) subscribeSDKUpdates() {
	sub, err := c.transport.Subscribe(subjectSDKClientsUpdates, func(*nats.Msg) {})
	if err != nil {
		logger.L().Warn("memphis: failed to subscribe to sdk client updates", "error", err)
		return
	}
	c.sdkUpdatesSub = sub
}

// sendInternalRequest marshals payload to JSON, publishes it to subject, and
// waits for a reply. It does not interpret the reply body — callers apply
// checkReply or parseCreateResponse depending on the expected shape.
func (c *Client) sendInternalRequest(subject string, payload any) ([]byte, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrNotConnected()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, ErrTransport(err)
	}

	msg, err := c.transport.Request(subject, data, c.reqTimeout)
	if err != nil {
		return nil, ErrTransport(err)
	}
	return msg.Data, nil
}

// sendNotification fire-and-forgets a Notification to the broker's
// notification subject.
func (c *Client) sendNotification(kind, title, msg, code string) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	data, err := json.Marshal(notificationReq{Title: title, Msg: msg, Type: kind, Code: code})
	if err != nil {
		logger.L().Warn("memphis: failed to marshal notification", "error", err)
		return
	}
	if err := c.transport.Publish(subjectNotifications, data); err != nil {
		logger.L().Warn("memphis: failed to publish notification", "error", err)
	}
}

// IsConnected reports whether the underlying NATS connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	return c.transport.Status() == nats.CONNECTED
}

// Close releases the underlying connection. It is safe to call more than
// once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.sdkUpdatesSub != nil {
		_ = c.sdkUpdatesSub.Unsubscribe()
	}
	c.transport.Close()
	return nil
}

// checkReply applies the destroy/notification-style protocol: an empty body
// is success; a JSON body with a non-empty "error" field is a broker
// failure; anything else non-JSON is a protocol error.
func checkReply(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var generic struct {
		Err string `json:"error"`
	}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return ErrProtocol(raw)
	}
	if generic.Err != "" {
		return ErrBrokerError(generic.Err)
	}
	return nil
}

// parseCreateResponse applies the same empty/JSON-error protocol but
// returns the richer create-response payload (partition list, and for
// producers, the initial schema binding) on success.
func parseCreateResponse(raw []byte) (*genericCreateResp, error) {
	if len(raw) == 0 {
		return &genericCreateResp{}, nil
	}
	var resp genericCreateResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, ErrInvalidResponse(raw)
	}
	if resp.Err != "" {
		return nil, ErrBrokerError(resp.Err)
	}
	return &resp, nil
}

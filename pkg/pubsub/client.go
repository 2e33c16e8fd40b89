// Package pubsub connects the storefront to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	gcpopts "github.com/angelmondragon/storefront-backend/pkg/gcp"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	// ErrUnnamedResource is returned when a topic or subscription name resolves to nothing.
	ErrUnnamedResource = errors.New("pubsub resource name is empty")
)

// Client publishes to the order topic and hands out subscribers.
// Publishers are created once per topic and reused.
type Client struct {
	client  *pubsub.Client
	project string
	cfg     config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient dials Pub/Sub and fails fast when the configured topic or subscription is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}

	raw, err := pubsub.NewClient(ctx, project, gcpopts.ClientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     raw,
		project:    project,
		cfg:        cfg,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project", project), "pubsub client initialized")
	}
	return c, nil
}

// Ping confirms the order topic and analytics subscription exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	if name := c.resourceName("topics", c.cfg.OrdersTopic); name != "" {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		if err := describeLookup("topic", c.cfg.OrdersTopic, err); err != nil {
			return err
		}
	}
	if name := c.resourceName("subscriptions", c.cfg.AnalyticsSubscription); name != "" {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		if err := describeLookup("subscription", c.cfg.AnalyticsSubscription, err); err != nil {
			return err
		}
	}
	return nil
}

func describeLookup(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Send publishes msg to topic and waits for the server-assigned id.
func (c *Client) Send(ctx context.Context, topic string, msg *pubsub.Message) error {
	pub, err := c.publisher(topic)
	if err != nil {
		return err
	}
	if _, err := pub.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("pubsub client not initialized")
	}
	name := c.resourceName("topics", topic)
	if name == "" {
		return nil, ErrUnnamedResource
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[name]; ok {
		return pub, nil
	}
	pub := c.client.Publisher(name)
	c.publishers[name] = pub
	return pub, nil
}

// Subscriber returns a receiver for a subscription id or full resource name.
func (c *Client) Subscriber(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName("subscriptions", name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// AnalyticsSubscription feeds the analytics worker.
func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	return c.Subscriber(c.cfg.AnalyticsSubscription)
}

// Close flushes cached publishers and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, pub := range c.publishers {
		pub.Stop()
	}
	c.publishers = map[string]*pubsub.Publisher{}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a short id into projects/<project>/<kind>/<id>.
// Names that already carry the full path are returned as is.
func (c *Client) resourceName(kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	if c == nil || c.project == "" {
		return ""
	}
	return "projects/" + c.project + "/" + kind + "/" + n
}

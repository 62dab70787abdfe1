// Package pubsub wraps the Google Cloud Pub/Sub v2 client used to carry
// outbox events when the publisher runs with the pubsub transport.
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

	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub topic name is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// resource is one topic or subscription the backend expects to exist.
type resource struct {
	kind string
	path string
}

type Client struct {
	client    *pubsub.Client
	projectID string
	required  []resource

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails unless every configured topic and
// subscription already exists. Resources are never created here.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	required, err := requiredResources(projectID, cfg)
	if err != nil {
		return nil, err
	}

	conn, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     conn,
		projectID:  projectID,
		required:   required,
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"project": projectID, "resources": len(required)}), "pubsub client initialized")
	}
	return c, nil
}

func requiredResources(projectID string, cfg config.PubSubConfig) ([]resource, error) {
	var out []resource
	add := func(kind string, names ...string) {
		for _, name := range names {
			if path := resourceName(projectID, kind, name); path != "" {
				out = append(out, resource{kind: kind, path: path})
			}
		}
	}
	add(kindTopic, cfg.OrdersTopic, cfg.PayoutsTopic)
	if len(out) == 0 {
		return nil, errNoTopics
	}
	add(kindSubscription, cfg.OrdersSubscription, cfg.PayoutsSubscription)
	return out, nil
}

func (c *Client) check(ctx context.Context, r resource) error {
	var err error
	switch r.kind {
	case kindTopic:
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: r.path})
	default:
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: r.path})
	}
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", r.path)
	default:
		return fmt.Errorf("checking %s: %w", r.path, err)
	}
}

// Publisher returns the cached publisher for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	path := resourceName(c.projectID, kindTopic, name)
	if path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[path]
	if !ok {
		p = c.client.Publisher(path)
		c.publishers[path] = p
	}
	return p
}

// Ping re-checks that every required resource is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, r := range c.required {
		if err := c.check(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes publishers and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for path, p := range c.publishers {
		p.Stop()
		delete(c.publishers, path)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a short id into projects/<p>/<kind>/<id>. Names that
// are already fully qualified pass through.
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if projectID = strings.TrimSpace(projectID); projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}

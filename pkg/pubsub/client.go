// Package pubsub wraps the Pub/Sub v2 client used by the outbox publisher.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/gcp"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("pubsub: gcp project id is required")
	errNoTopics          = errors.New("pubsub: at least one topic is required")
	errNotInitialized    = errors.New("pubsub: client not initialized")
)

// Client publishes to a fixed set of topics that must exist at startup.
// Publishers are created lazily, with message ordering on, and reused.
type Client struct {
	api     *pubsub.Client
	project string
	topics  []string // full resource names

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewClient(ctx context.Context, gcpCfg config.GCPConfig, topics []string, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	names := resourceNames(project, topics)
	if len(names) == 0 {
		return nil, errNoTopics
	}

	api, err := pubsub.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: new client: %w", err)
	}
	c := &Client{api: api, project: project, topics: names, publishers: make(map[string]*pubsub.Publisher)}
	if err := c.Ping(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}
	logg.Info(logg.WithField(ctx, "topics", names), "pubsub.ready")
	return c, nil
}

// Ping confirms every configured topic still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errNotInitialized
	}
	for _, name := range c.topics {
		_, err := c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("pubsub: topic %s does not exist", name)
		case err != nil:
			return fmt.Errorf("pubsub: get topic %s: %w", name, err)
		}
	}
	return nil
}

// Publisher returns the shared publisher for a topic id or full resource
// name, or nil when the name is empty or the client is closed.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.api == nil {
		return nil
	}
	name := resourceName(c.project, topic)
	if name == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[name]
	if !ok {
		pub = c.api.Publisher(name)
		pub.EnableMessageOrdering = true
		c.publishers[name] = pub
	}
	return pub
}

// Close flushes outstanding publishes, then closes the connection.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.mu.Lock()
	pubs := c.publishers
	c.publishers = make(map[string]*pubsub.Publisher)
	c.mu.Unlock()
	for _, pub := range pubs {
		pub.Stop()
	}
	return c.api.Close()
}

// resourceNames expands and de-duplicates topics, keeping first-seen order.
func resourceNames(project string, topics []string) []string {
	var out []string
	for _, t := range topics {
		if name := resourceName(project, t); name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func resourceName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	project = strings.TrimSpace(project)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	case project == "":
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}

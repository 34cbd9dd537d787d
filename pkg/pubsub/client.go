package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoDomainTopic     = errors.New("pubsub domain topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub connection and one publisher per topic. Publishers
// batch in the background, so Close stops them to flush pending messages.
type Client struct {
	client    *pubsub.Client
	projectID string
	topic     string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and checks the domain topic. With
// cfg.CreateTopic set (emulator or local runs) a missing topic is created.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	var opts []option.ClientOption
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	raw, err := pubsub.NewClient(ctx, gcp.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     raw,
		projectID:  gcp.ProjectID,
		topic:      cfg.DomainTopic,
		publishers: map[string]*pubsub.Publisher{},
	}
	created, err := c.ensureTopic(ctx, cfg.DomainTopic, cfg.CreateTopic)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"topic": cfg.DomainTopic, "created": created}), "pubsub client initialized")
	return c, nil
}

func (c *Client) ensureTopic(ctx context.Context, name string, create bool) (bool, error) {
	full := TopicResourceName(c.projectID, name)
	if full == "" {
		return false, errNoDomainTopic
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	switch {
	case err == nil:
		return false, nil
	case status.Code(err) != codes.NotFound:
		return false, fmt.Errorf("checking topic %q: %w", name, err)
	case !create:
		return false, fmt.Errorf("topic %q does not exist", name)
	}
	_, err = c.client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: full})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return false, fmt.Errorf("creating topic %q: %w", name, err)
	}
	return true, nil
}

// Publisher returns the cached publisher for a topic id or resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := TopicResourceName(c.projectID, name)
	if full == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	c.publishers[full] = p
	return p
}

// Ping verifies Pub/Sub connectivity by checking the domain topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	_, err := c.ensureTopic(ctx, c.topic, false)
	return err
}

// Close flushes every publisher and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for key, p := range c.publishers {
		p.Stop()
		delete(c.publishers, key)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// TopicResourceName expands a bare topic id into its full resource name.
func TopicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return "projects/" + p + "/topics/" + n
}

// Package pubsub wraps the Pub/Sub v2 client with the topic and
// subscription the admin backend is configured for.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/logger"
)

var errNotInitialized = errors.New("pubsub client not initialized")

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects to Pub/Sub and fails fast when the notification
// subscription is missing, since the worker cannot consume without it.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}
	if strings.TrimSpace(cfg.NotificationSubscription) == "" {
		return nil, errors.New("notification subscription is required")
	}

	raw, err := pubsub.NewClient(ctx, projectID, credentialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{client: raw, projectID: projectID, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":      projectID,
			"domain_topic": cfg.DomainTopic,
			"subscription": cfg.NotificationSubscription,
		}), "pubsub client ready")
	}
	return c, nil
}

// credentialOptions falls back to application default credentials when
// neither inline JSON nor a key file is configured.
func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if path := strings.TrimSpace(gcp.CredentialsFile); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping checks the notification subscription is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	name := subscriptionPath(c.projectID, c.cfg.NotificationSubscription)
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("subscription %s does not exist", name)
	default:
		return fmt.Errorf("get subscription %s: %w", name, err)
	}
}

// Subscription accepts a bare ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.client.Subscriber(subscriptionPath(c.projectID, name))
}

func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.NotificationSubscription)
}

// Publisher accepts a bare topic ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.client.Publisher(topicPath(c.projectID, name))
}

func (c *Client) DomainPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.Publisher(c.cfg.DomainTopic)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func subscriptionPath(projectID, name string) string {
	return resourcePath(projectID, "subscriptions", name)
}

func topicPath(projectID, name string) string {
	return resourcePath(projectID, "topics", name)
}

// resourcePath expands id to projects/<project>/<kind>/<id> unless it is
// already a full path.
func resourcePath(projectID, kind, id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+kind+"/") {
		return id
	}
	return "projects/" + projectID + "/" + kind + "/" + id
}

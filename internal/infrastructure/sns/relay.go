package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-credential-api/internal/config"
	"github.com/go-credential-api/internal/domain"
)

// SyncRelay asks downstream systems to pick up the current state of a user.
type SyncRelay interface {
	RequestUserSync(ctx context.Context, u *domain.User) error
}

type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// syncEvent is the message body published for each saved user.
type syncEvent struct {
	UserID    string    `json:"user_id"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type relay struct {
	client   publisher
	topicARN string
}

// NewRelay returns an SNS-backed relay, or a logging no-op when no topic is
// configured.
func NewRelay(ctx context.Context, cfg *config.Config) (SyncRelay, error) {
	if cfg.SyncTopicARN == "" {
		return NoopRelay{}, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
	return newRelay(client, cfg.SyncTopicARN), nil
}

func newRelay(client publisher, topicARN string) *relay {
	return &relay{client: client, topicARN: topicARN}
}

func (r *relay) RequestUserSync(ctx context.Context, u *domain.User) error {
	body, err := json.Marshal(syncEvent{UserID: u.UserID, Version: u.Version, UpdatedAt: u.UpdatedAt.UTC()})
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}
	_, err = r.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(r.topicARN),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("publish sync for %s: %w: %w", u.UserID, domain.ErrSyncFailed, err)
	}
	return nil
}

// NoopRelay only logs sync requests.
type NoopRelay struct{}

func (NoopRelay) RequestUserSync(_ context.Context, u *domain.User) error {
	slog.Debug("user sync skipped, no topic configured", "user_id", u.UserID, "version", u.Version)
	return nil
}

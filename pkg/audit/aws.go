package audit

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// loadAWSConfig resolves region and credentials for an AWS sink. Static keys,
// when set, replace the default credential chain.
func loadAWSConfig(ctx context.Context, c AWSConfig) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(c.Region)}
	if c.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// endpointOverride returns a pointer for the service BaseEndpoint option, or
// nil to keep the resolved AWS endpoint.
func endpointOverride(endpoint string) *string {
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsSink enqueues each event on an SQS queue.
type sqsSink struct {
	id       string
	queueURL string
	api      sqsAPI
	log      Logger
}

func openSQSSink(ctx context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	qc := cfg.SQS
	if qc == nil {
		return nil, fmt.Errorf("sink %q has no sqs block", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, qc.AWSConfig)
	if err != nil {
		return nil, err
	}
	api := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.BaseEndpoint = endpointOverride(qc.Endpoint)
	})
	return &sqsSink{id: cfg.ID, queueURL: qc.QueueURL, api: api, log: orQuiet(log)}, nil
}

func (s *sqsSink) ID() string   { return s.id }
func (s *sqsSink) Type() string { return TypeSQS }

func (s *sqsSink) Deliver(ctx context.Context, evt Event) error {
	body, attrs, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	msgAttrs := make(map[string]sqstypes.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		msgAttrs[k] = sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	out, err := s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: msgAttrs,
	})
	if err != nil {
		s.log.ErrorObj("audit event not enqueued", "audit_sqs", map[string]any{"sink": s.id, "error": err.Error()})
		return fmt.Errorf("sqs send: %w", err)
	}
	s.log.DebugObj("audit event enqueued", "audit_sqs", map[string]any{"sink": s.id, "message_id": aws.ToString(out.MessageId)})
	return nil
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsSink announces each event on an SNS topic.
type snsSink struct {
	id       string
	topicARN string
	api      snsAPI
	log      Logger
}

func openSNSSink(ctx context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	tc := cfg.SNS
	if tc == nil {
		return nil, fmt.Errorf("sink %q has no sns block", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, tc.AWSConfig)
	if err != nil {
		return nil, err
	}
	api := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = endpointOverride(tc.Endpoint)
	})
	return &snsSink{id: cfg.ID, topicARN: tc.TopicARN, api: api, log: orQuiet(log)}, nil
}

func (s *snsSink) ID() string   { return s.id }
func (s *snsSink) Type() string { return TypeSNS }

func (s *snsSink) Deliver(ctx context.Context, evt Event) error {
	body, attrs, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	msgAttrs := make(map[string]snstypes.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		msgAttrs[k] = snstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	if _, err := s.api.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(body)),
		MessageAttributes: msgAttrs,
	}); err != nil {
		s.log.ErrorObj("audit event not announced", "audit_sns", map[string]any{"sink": s.id, "error": err.Error()})
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

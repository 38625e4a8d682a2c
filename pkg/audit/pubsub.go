package audit

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubSink sends each event to a Cloud Pub/Sub topic. The client library
// honours PUBSUB_EMULATOR_HOST.
type pubsubSink struct {
	id     string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

func openPubSubSink(ctx context.Context, cfg SinkConfig, log Logger) (Sink, error) {
	pc := cfg.PubSub
	if pc == nil {
		return nil, fmt.Errorf("sink %q has no pubsub block", cfg.ID)
	}

	var opts []option.ClientOption
	if pc.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(pc.Endpoint))
	}
	if pc.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(pc.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, pc.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &pubsubSink{id: cfg.ID, client: client, topic: client.Topic(pc.Topic), log: orQuiet(log)}, nil
}

func (p *pubsubSink) ID() string   { return p.id }
func (p *pubsubSink) Type() string { return TypePubSub }

// Deliver waits for the server to acknowledge the message.
func (p *pubsubSink) Deliver(ctx context.Context, evt Event) error {
	body, attrs, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	msgID, err := p.topic.Publish(ctx, &pubsub.Message{Data: body, Attributes: attrs}).Get(ctx)
	if err != nil {
		p.log.ErrorObj("audit event not published", "audit_pubsub", map[string]any{"sink": p.id, "error": err.Error()})
		return fmt.Errorf("pubsub publish: %w", err)
	}
	p.log.DebugObj("audit event published", "audit_pubsub", map[string]any{"sink": p.id, "message_id": msgID})
	return nil
}

// Close flushes pending messages and releases the client.
func (p *pubsubSink) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

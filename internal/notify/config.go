package notify

import (
	"context"
	"fmt"

	awsclient "credit-scoring/internal/common/aws"
	"credit-scoring/internal/common/config"
)

// FromConfig builds the enabled notifiers. It returns nil when none are
// enabled.
func FromConfig(ctx context.Context, cfg config.NotificationConfig) (Notifier, error) {
	var m Multi
	if cfg.SNS.Enabled {
		client, err := awsclient.NewSNSClient(ctx, cfg.SNS.Region)
		if err != nil {
			return nil, fmt.Errorf("create sns client: %w", err)
		}
		m = append(m, NewSNSNotifier(client, cfg.SNS.TopicARN))
	}
	if cfg.SES.Enabled {
		client, err := awsclient.NewSESClient(ctx, cfg.SES.Region)
		if err != nil {
			return nil, fmt.Errorf("create ses client: %w", err)
		}
		m = append(m, NewSESNotifier(client, cfg.SES.From, cfg.SES.To))
	}

	switch len(m) {
	case 0:
		return nil, nil
	case 1:
		return m[0], nil
	}
	return m, nil
}

package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	appconfig "depthsignal/config"
	"depthsignal/logger"
)

// CloudWatchPublisher periodically ships the engine totals to
// CloudWatch. Publishing is best-effort; a failed put is logged and
// retried on the next tick.
type CloudWatchPublisher struct {
	client    *cloudwatch.Client
	namespace string
	interval  time.Duration
	log       *logger.Log
	last      Counts
}

// NewCloudWatchPublisher initialises the CloudWatch client from the
// default AWS credential chain. It returns an error when the AWS
// configuration cannot be loaded so the caller can disable publishing.
func NewCloudWatchPublisher(ctx context.Context, cfg appconfig.CloudWatchConfig) (*CloudWatchPublisher, error) {
	log := logger.GetLogger()

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	log.WithComponent("cloudwatch").WithFields(logger.Fields{
		"namespace": cfg.Namespace,
		"interval":  interval.String(),
	}).Info("cloudwatch publisher initialized")

	return &CloudWatchPublisher{
		client:    cloudwatch.NewFromConfig(awsCfg),
		namespace: cfg.Namespace,
		interval:  interval,
		log:       log,
	}, nil
}

// Run publishes deltas on a fixed interval until the context ends.
func (p *CloudWatchPublisher) Run(ctx context.Context) {
	log := p.log.WithComponent("cloudwatch")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("cloudwatch publisher stopped")
			return
		case <-ticker.C:
			p.publish(ctx)
		}
	}
}

func (p *CloudWatchPublisher) publish(ctx context.Context) {
	log := p.log.WithComponent("cloudwatch")

	now := Snapshot()
	data := []cwtypes.MetricDatum{
		datum("CycleSuccess", float64(now.CycleSuccess-p.last.CycleSuccess)),
		datum("CycleErrors", float64(now.CycleErrors-p.last.CycleErrors)),
		datum("VenueFetchErrors", float64(now.VenueErrors-p.last.VenueErrors)),
		datum("Broadcasts", float64(now.Broadcasts-p.last.Broadcasts)),
		datum("Subscribers", float64(now.Subscribers)),
	}

	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(p.namespace),
		MetricData: data,
	})
	if err != nil {
		log.WithError(err).Warn("failed to publish metrics")
		return
	}
	p.last = now
}

func datum(name string, value float64) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Timestamp:  aws.Time(time.Now().UTC()),
		Unit:       cwtypes.StandardUnitCount,
	}
}

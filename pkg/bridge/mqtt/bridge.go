package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uartcon/pkg/console"
	"github.com/robotalks/uartcon/pkg/sim"
)

// Topics relative to <prefix><id>/.
const (
	TopicRx    = "rx"
	TopicTx    = "tx"
	TopicMeta  = "meta"
	TopicStats = "stats"
)

// PubSub is the part of Queue used by Bridge.
type PubSub interface {
	Sub(topic string, handler Handler)
	Publish(topic string, payload []byte, retain bool) error
}

// Device is the console exposed over MQTT.
type Device interface {
	Inject(context.Context, []byte) error
	Attach(io.Writer) (detach func())
	Stats() sim.Stats
}

// Meta is published retained on <id>/meta while the bridge is online.
type Meta struct {
	ID       string   `json:"id"`
	Commands []string `json:"commands,omitempty"`
	BaudRate int      `json:"baud_rate,omitempty"`
}

// Bridge forwards <id>/rx payloads to the receive line and publishes
// transmitted text on <id>/tx and statistics on <id>/stats.
type Bridge struct {
	PubSub        PubSub
	Device        Device
	Meta          Meta
	StatsInterval time.Duration
	// FlushInterval bounds how long partial output (e.g. echo) is held.
	FlushInterval time.Duration
}

// DefaultFlushInterval is the default FlushInterval.
const DefaultFlushInterval = 50 * time.Millisecond

// NewBridge creates a Bridge connecting to brokerURL.
func NewBridge(brokerURL string, dev Device, meta Meta) (*Bridge, *Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid MQTT URL: %v", err)
	}
	metaTopic := topicPrefix + meta.ID + "/" + TopicMeta
	opts.SetBinaryWill(metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("uartcon:" + meta.ID)
	}
	q := NewQueue(opts, topicPrefix)
	b := &Bridge{
		PubSub:        q,
		Device:        dev,
		Meta:          meta,
		FlushInterval: DefaultFlushInterval,
	}
	q.OnConnect = func(*Queue) {
		if err := b.publishMeta(); err != nil {
			glog.Warningf("mqtt: publish meta: %v", err)
		}
	}
	return b, q, nil
}

func (b *Bridge) topic(name string) string {
	return b.Meta.ID + "/" + name
}

func (b *Bridge) publishMeta() error {
	data, err := json.Marshal(&b.Meta)
	if err != nil {
		return err
	}
	return b.PubSub.Publish(b.topic(TopicMeta), data, true)
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	out := &outbox{
		prompt: []byte(console.Prompt),
		flushFn: func(chunk []byte) {
			if err := b.PubSub.Publish(b.topic(TopicTx), chunk, false); err != nil {
				glog.Warningf("mqtt: publish tx: %v", err)
			}
		},
	}
	detach := b.Device.Attach(out)
	defer detach()

	b.PubSub.Sub(b.topic(TopicRx), func(_ string, payload []byte) {
		glog.V(2).Infof("mqtt: rx %d bytes", len(payload))
		if err := b.Device.Inject(ctx, payload); err != nil {
			glog.Warningf("mqtt: inject: %v", err)
		}
	})

	flushInterval := b.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	flushTicker := time.NewTicker(flushInterval)
	defer flushTicker.Stop()

	var statsCh <-chan time.Time
	if b.StatsInterval > 0 {
		statsTicker := time.NewTicker(b.StatsInterval)
		defer statsTicker.Stop()
		statsCh = statsTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			out.Flush()
			if err := b.PubSub.Publish(b.topic(TopicMeta), nil, true); err != nil {
				glog.Warningf("mqtt: clear meta: %v", err)
			}
			return ctx.Err()
		case <-flushTicker.C:
			out.Flush()
		case <-statsCh:
			if err := b.PublishStats(); err != nil {
				glog.Warningf("mqtt: publish stats: %v", err)
			}
		}
	}
}

// PublishStats publishes the current statistics once.
func (b *Bridge) PublishStats() error {
	data, err := EncodeStats(b.Device.Stats())
	if err != nil {
		return err
	}
	return b.PubSub.Publish(b.topic(TopicStats), data, false)
}

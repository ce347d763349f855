package main

import (
	"flag"
	"log"
	"strings"

	"github.com/robotalks/uartcon/pkg/bridge/mqtt"
	"github.com/robotalks/uartcon/pkg/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conf := env.Default()
	if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}
	if conf.MQTTURL == "" {
		log.Fatalln("MQTT broker URL required")
	}
	q, err := mqtt.NewQueueFromURL(conf.MQTTURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.TopicMeta):
			if len(payload) == 0 {
				log.Printf("%s: offline", topic)
				return
			}
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, "/"+mqtt.TopicStats):
			st, err := mqtt.DecodeStats(payload)
			if err != nil {
				log.Printf("%s: bad stats: %v", topic, err)
				return
			}
			log.Printf("%s: %s", topic, st.String())
		default:
			log.Printf("%s: %q", topic, payload)
		}
	}))
	<-(chan struct{})(nil)
}

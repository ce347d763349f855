package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/robotalks/uartcon/pkg/bridge/mqtt"
	"github.com/robotalks/uartcon/pkg/bridge/websocket"
	"github.com/robotalks/uartcon/pkg/console"
	"github.com/robotalks/uartcon/pkg/env"
	fx "github.com/robotalks/uartcon/pkg/framework"
	"github.com/robotalks/uartcon/pkg/sim"
	"github.com/robotalks/uartcon/pkg/uart"
)

var noStdio bool

func init() {
	env.SetupFlags()
	flag.BoolVar(&noStdio, "no-stdio", noStdio, "Do not connect the console to stdin/stdout.")
}

func main() {
	flag.Parse()

	conf := env.Default()
	if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}

	boardConf := sim.DefaultBoardConfig
	boardConf.LEDPin = uart.Pin(conf.LEDPin)
	boardConf.CharTime = conf.CharTime()
	board := sim.NewBoard(boardConf)

	runnables := []fx.Runnable{fx.NamedRun("board", board)}
	if !noStdio {
		board.Attach(os.Stdout)
		runnables = append(runnables, fx.NamedRun("stdin", fx.RunFunc(func(ctx context.Context) error {
			err := board.Feed(ctx, os.Stdin)
			if err == io.EOF {
				<-ctx.Done()
				return ctx.Err()
			}
			return err
		})))
	}

	if conf.MQTTURL != "" {
		meta := mqtt.Meta{
			ID:       conf.ID,
			Commands: console.DefaultTable(boardConf.LEDPin).Names(),
			BaudRate: conf.BaudRate,
		}
		bridge, q, err := mqtt.NewBridge(conf.MQTTURL, board, meta)
		if err != nil {
			log.Fatalln(err)
		}
		bridge.StatsInterval = conf.StatsInterval
		if err := q.Connect(); err != nil {
			log.Fatalf("connect %s failed: %v", conf.MQTTURL, err)
		}
		defer q.Close()
		runnables = append(runnables, fx.NamedRun("mqtt", bridge))
	}

	if conf.WebSocketAddr != "" {
		runnables = append(runnables, fx.NamedRun("websocket", &websocket.Server{
			Addr:   conf.WebSocketAddr,
			Device: board,
		}))
	}

	if err := fx.NewRunner().HandleSignals().Go(runnables...).Wait(); err != nil {
		log.Fatalln(err)
	}
}

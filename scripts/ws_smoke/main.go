// Command ws_smoke connects to the call event stream and prints every envelope it receives.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/videoconf/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", os.Getenv("VIDEOCONF_TOKEN"), "bearer token (see `videoconf token`)")
	count := flag.Int("count", 0, "exit after this many call events (0 waits until timeout)")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return errors.New("token is required")
	}

	u, err := url.Parse(*addr)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}
	q := u.Query()
	q.Set("token", *token)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	seen := 0
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && *count == 0 {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch outbound.Type {
		case proto.OutboundTypeHello:
			var hello proto.HelloData
			if err := json.Unmarshal(outbound.Data, &hello); err != nil {
				return fmt.Errorf("unmarshal hello: %w", err)
			}
			fmt.Printf("connected: user=%s protocol=%d\n", hello.User, hello.Protocol)
		case proto.OutboundTypeError:
			if outbound.Error != nil {
				fmt.Printf("error: code=%s msg=%s\n", outbound.Error.Code, outbound.Error.Msg)
			}
		case proto.OutboundTypeEvent:
			var evt proto.EventCall
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				fmt.Printf("raw data: %s\n", string(outbound.Data))
				return fmt.Errorf("unmarshal event: %w", err)
			}
			fmt.Printf("%s: call=%s type=%s room=%s from=%s user=%s\n",
				outbound.Event, evt.CallID, evt.CallType, evt.RoomID, evt.FromUserID, evt.UserID)
			seen++
			if *count > 0 && seen >= *count {
				return nil
			}
		}
	}
}

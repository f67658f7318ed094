// body-replay: streams recorded detector frames to a running targetlock
// service. Each line of the input file is one JSON bodies snapshot:
//
//	{"frame":1,"bodies":[{"id":7,"root":{"x":0,"y":0,"z":4},"joints":[...]}]}
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-targetlock/internal/httpc"
	"github.com/teslashibe/go-targetlock/internal/log"
	"github.com/teslashibe/go-targetlock/pkg/protocol"
)

var (
	file  = flag.String("file", "", "JSON-lines file of bodies snapshots (required)")
	url   = flag.String("url", "ws://localhost:8090/ws/feed/replay", "Feed websocket URL")
	rate  = flag.Float64("rate", 30, "Frames per second")
	loop  = flag.Bool("loop", false, "Restart from the first frame at end of file")
	api   = flag.String("api", "http://localhost:8090/api", "Service API base URL")
	lock  = flag.Int("lock", -1, "Request a lock on this body ID after the first frame (-1 disables)")
	debug = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	if *file == "" || *rate <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	frames, err := readFrames(*file)
	if err != nil {
		log.Error("read frames", "error", err)
		os.Exit(1)
	}
	if len(frames) == 0 {
		log.Error("no frames in file", "file", *file)
		os.Exit(1)
	}

	fmt.Printf("🎞️  Replaying %d frames from %s to %s at %.0f fps\n", len(frames), *file, *url, *rate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := replay(ctx, frames); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("replay", "error", err)
		os.Exit(1)
	}
	fmt.Println("✅ Done")
}

// readFrames parses one protocol.BodiesData per non-empty line.
func readFrames(path string) ([]protocol.BodiesData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frames []protocol.BodiesData
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var frame protocol.BodiesData
		if err := json.Unmarshal(text, &frame); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if frame.Frame == 0 {
			frame.Frame = uint64(len(frames) + 1)
		}
		frames = append(frames, frame)
	}
	return frames, scanner.Err()
}

func replay(ctx context.Context, frames []protocol.BodiesData) error {
	conn, _, err := httpc.Dialer.DialContext(ctx, *url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *url, err)
	}
	defer conn.Close()

	// Surface rejections from the service
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			if msg.Type == protocol.TypeError {
				if e, err := msg.GetErrorData(); err == nil {
					log.Warn("⚠️  rejected", "type", e.Type, "error", e.Error)
				}
			}
		}
	}()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer ticker.Stop()

	sent := 0
	for {
		for _, frame := range frames {
			select {
			case <-ctx.Done():
				closeConn(conn)
				return ctx.Err()
			case <-ticker.C:
			}

			msg, err := protocol.NewMessage(protocol.TypeBodies, frame)
			if err != nil {
				return err
			}
			data, err := msg.Bytes()
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("send frame %d: %w", frame.Frame, err)
			}

			sent++
			if sent == 1 && *lock >= 0 {
				requestLock(ctx, *lock)
			}
			log.Debug("sent frame", "frame", frame.Frame, "bodies", len(frame.Bodies))
		}

		if !*loop {
			break
		}
		log.Info("🔁 looping", "sent", sent)
	}

	closeConn(conn)
	return nil
}

// requestLock asks the service to lock onto id. Failures are logged only.
func requestLock(ctx context.Context, id int) {
	endpoint := fmt.Sprintf("%s/lock/%d", *api, id)
	if err := httpc.PostJSON(ctx, endpoint, nil, nil); err != nil {
		log.Warn("lock request failed", "id", id, "error", err)
		return
	}
	log.Info("🔒 lock requested", "id", id)
}

func closeConn(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

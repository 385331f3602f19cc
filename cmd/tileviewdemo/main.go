// Command tileviewdemo exercises the tileview viewer against a real image
// server. It can render a one-shot PNG snapshot at a chosen zoom level, or
// serve a small live view in the browser: pan/zoom commands arrive over a
// websocket and rendered frames stream back as PNG images.
//
// Configuration comes from flags, with defaults from the environment
// (optionally loaded from a .env file):
//
//	TILEVIEW_BASE_URL   image server base URL
//	TILEVIEW_SRC        default image identifier
package main

import (
	"bytes"
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/gogpu/tileview"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	var (
		base     = flag.String("base", os.Getenv("TILEVIEW_BASE_URL"), "image server base URL")
		src      = flag.String("src", os.Getenv("TILEVIEW_SRC"), "image identifier")
		width    = flag.Int("width", 800, "viewport width")
		height   = flag.Int("height", 600, "viewport height")
		level    = flag.Int("level", 1, "zoom level for -output snapshots")
		output   = flag.String("output", "", "write a PNG snapshot and exit")
		listen   = flag.String("listen", "", "serve a live view on this address (e.g. :8080)")
		maxTiles = flag.Int("maxtiles", tileview.DefaultMaxTiles, "maximum tiles per zoom level")
		verbose  = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *base == "" || *src == "" {
		log.Fatal("both -base and -src (or TILEVIEW_BASE_URL / TILEVIEW_SRC) are required")
	}
	lvl := slog.LevelInfo
	if *verbose {
		lvl = slog.LevelDebug
	}
	tileview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))

	client := tileview.NewClient(*base)

	switch {
	case *output != "":
		if err := snapshot(client, *src, *width, *height, *level, *maxTiles, *output); err != nil {
			log.Fatal(err)
		}
	case *listen != "":
		if err := serve(client, *src, *width, *height, *maxTiles, *listen); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatal("one of -output or -listen is required")
	}
}

// snapshot renders the image at the requested zoom level and writes a PNG.
func snapshot(client *tileview.Client, src string, w, h, level, maxTiles int, out string) error {
	canvas, err := tileview.NewPixmapCanvas(w, h)
	if err != nil {
		return err
	}
	v, err := tileview.New(canvas, client, src, tileview.WithMaxTiles(maxTiles))
	if err != nil {
		return err
	}
	defer v.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := v.Init(ctx); err != nil {
		return err
	}

	for v.Level() < level && v.Level() < v.MaxLevel() {
		v.ZoomIn()
		settle(ctx, v)
	}
	settle(ctx, v)

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := canvas.EncodePNG(f); err != nil {
		return err
	}
	log.Printf("snapshot saved to %s (%dx%d, level %d/%d)", out, w, h, v.Level(), v.MaxLevel())
	return nil
}

// settle ticks the viewer until the current animation has finished and all
// requested tiles have arrived (or the context expires).
func settle(ctx context.Context, v *tileview.Viewer) {
	for {
		v.Tick()
		if v.State() == tileview.StateIdle && v.PendingTiles() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(16 * time.Millisecond):
		}
	}
}

// command is one interaction message from the browser.
type command struct {
	Op string  `json:"op"` // zoomin, zoomout, fit, reset, dragstart, drag, dragend
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 1 << 16,
}

// serve runs the live view: an HTML page plus a websocket per viewer.
func serve(client *tileview.Client, src string, w, h, maxTiles int, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = rw.Write([]byte(indexHTML))
	})
	mux.HandleFunc("/ws", func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		session(conn, client, src, w, h, maxTiles)
	})
	log.Printf("live view on http://localhost%s/", addr)
	return http.ListenAndServe(addr, mux)
}

// session owns one websocket connection and its viewer. The read loop runs
// on its own goroutine and forwards commands over a channel, so all viewer
// calls stay on this goroutine.
func session(conn *websocket.Conn, client *tileview.Client, src string, w, h, maxTiles int) {
	defer conn.Close()

	canvas, err := tileview.NewPixmapCanvas(w, h)
	if err != nil {
		return
	}

	painted := false
	v, err := tileview.New(canvas, client, src,
		tileview.WithMaxTiles(maxTiles),
		tileview.WithOnFrame(func() { painted = true }),
	)
	if err != nil {
		return
	}
	defer v.Close()

	cmds := make(chan command, 16)
	go func() {
		defer close(cmds)
		for {
			var c command
			if err := conn.ReadJSON(&c); err != nil {
				return
			}
			cmds <- c
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = v.Init(ctx) // on failure the error glyph is streamed instead

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	var buf bytes.Buffer
	for {
		select {
		case c, ok := <-cmds:
			if !ok {
				return
			}
			apply(v, c)
		case <-ticker.C:
			v.Tick()
			if !painted {
				continue
			}
			painted = false
			buf.Reset()
			if err := canvas.EncodePNG(&buf); err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
				return
			}
		}
	}
}

// apply translates one browser command into a viewer operation.
func apply(v *tileview.Viewer, c command) {
	switch c.Op {
	case "zoomin":
		v.ZoomInAt(c.X, c.Y)
	case "zoomout":
		v.ZoomOut()
	case "fit":
		v.ZoomToFit()
	case "reset":
		v.Reset()
	case "dragstart":
		v.BeginDrag(c.X, c.Y)
	case "drag":
		v.Drag(c.X, c.Y)
	case "dragend":
		v.EndDrag(c.X, c.Y)
	}
}

// indexHTML is the minimal live-view page: an <img> fed by websocket
// frames, with pointer events translated to viewer commands.
const indexHTML = `<!doctype html>
<html><head><title>tileview</title><style>
body{margin:0;background:#111;display:flex;justify-content:center;align-items:center;height:100vh}
img{cursor:grab}img.drag{cursor:grabbing}
</style></head><body>
<img id="view" alt="tileview">
<script>
const img = document.getElementById("view");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.binaryType = "blob";
let url = null;
ws.onmessage = ev => {
  if (url) URL.revokeObjectURL(url);
  url = URL.createObjectURL(ev.data);
  img.src = url;
};
const send = (op, ev) => {
  const r = img.getBoundingClientRect();
  ws.send(JSON.stringify({op, x: ev.clientX - r.left, y: ev.clientY - r.top}));
};
img.onpointerdown = ev => { img.classList.add("drag"); img.setPointerCapture(ev.pointerId); send("dragstart", ev); };
img.onpointermove = ev => { if (ev.buttons) send("drag", ev); };
img.onpointerup = ev => { img.classList.remove("drag"); send("dragend", ev); };
img.oncontextmenu = ev => { ev.preventDefault(); send("zoomout", ev); };
document.onkeydown = ev => { if (ev.key === "f") send("fit", ev); if (ev.key === "r") send("reset", ev); };
</script></body></html>`

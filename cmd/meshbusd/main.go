// Command meshbusd stands up a message bus server: a TCP listener that
// onboards clients through the handshake state machine and bridges them
// onto a threaded bus, plus an optional WebSocket endpoint exposing the
// same bus. Modeled on the teacher's cmd/roj1 flag-driven entrypoint.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"github.com/meshbus/meshbus/internal/bus"
	binarycodec "github.com/meshbus/meshbus/internal/codec/binary"
	"github.com/meshbus/meshbus/internal/codec/jsoncodec"
	"github.com/meshbus/meshbus/internal/config"
	"github.com/meshbus/meshbus/internal/handshake"
	"github.com/meshbus/meshbus/internal/meshlog"
	"github.com/meshbus/meshbus/internal/meshstats"
	"github.com/meshbus/meshbus/internal/registry"
	"github.com/meshbus/meshbus/internal/server"
	"github.com/meshbus/meshbus/internal/threadpool"
	"github.com/meshbus/meshbus/internal/wsbridge"
)

func main() {
	addr := flag.String("addr", ":9090", "TCP listen address")
	wsAddr := flag.String("ws-addr", "", "optional WebSocket listen address, e.g. :9091")
	protocol := flag.String("protocol", "binary", "wire protocol: binary or json")
	threads := flag.Int("threads", 4, "thread pool size")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		meshlog.EnableDebug()
	}

	pterm.DefaultHeader.WithFullWidth().Println("meshbus")

	cfg := config.DefaultServerConfig(*addr)
	if *protocol == "json" {
		cfg.Protocol = config.ProtocolJSON
	}
	cfg.ThreadPoolSize = *threads

	reg, err := buildRegistry(cfg.Protocol)
	if err != nil {
		meshlog.Error("failed to build message registry: %v", err)
		os.Exit(1)
	}
	handshakeHandler := handshake.NewHandler(reg)

	pool, err := threadpool.New(cfg.ThreadPoolSize)
	if err != nil {
		meshlog.Error("failed to create thread pool: %v", err)
		os.Exit(1)
	}
	pool.Start()
	defer pool.Stop()

	b := bus.NewThreadedBus(pool)
	serverBus := server.NewServerBus(b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		meshlog.Info("shutting down")
		cancel()
	}()

	meshstats.StartReporter(ctx, "bus", &b.Stats, cfg.StatsInterval)

	var wsServer *http.Server
	if *wsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", wsbridge.UpgradeHandler(reg, handshakeHandler, serverBus, cfg.DataBufSize))
		wsServer = &http.Server{Addr: *wsAddr, Handler: mux}
		go func() {
			meshlog.Info("websocket bridge listening on %s", *wsAddr)
			if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				meshlog.Error("websocket bridge stopped: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			wsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := server.ListenAndServe(ctx, cfg, reg, handshakeHandler, serverBus); err != nil {
		meshlog.Error("server stopped: %v", err)
		os.Exit(1)
	}
}

// buildRegistry registers the three handshake message types against the
// configured wire protocol. Application message types beyond the handshake
// would be registered here too, by whatever server embeds this package.
func buildRegistry(proto config.Protocol) (*registry.MessageRegistry, error) {
	var reg *registry.MessageRegistry
	var initCodec, responseCodec, completeCodec registry.Codec

	switch proto {
	case config.ProtocolJSON:
		reg = registry.New(jsoncodec.Protocol{}, registry.BufferSizeAuto)
		initCodec, responseCodec, completeCodec = handshake.JSONInitCodec, handshake.JSONResponseV1Codec, handshake.JSONCompleteCodec
	default:
		reg = registry.New(binarycodec.Protocol{}, registry.BufferSizeAuto)
		initCodec, responseCodec, completeCodec = handshake.BinaryInitCodec, handshake.BinaryResponseV1Codec, handshake.BinaryCompleteCodec
	}

	if err := reg.Register(handshake.NewInitMessage(handshake.SupportedVersion), initCodec); err != nil {
		return nil, err
	}
	if err := reg.Register(handshake.NewResponseV1Message(0, 0), responseCodec); err != nil {
		return nil, err
	}
	if err := reg.Register(handshake.NewCompleteMessage(handshake.SupportedVersion), completeCodec); err != nil {
		return nil, err
	}
	return reg, nil
}

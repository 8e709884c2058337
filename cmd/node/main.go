// Command node is the process entrypoint: it loads configuration, builds
// the libp2p overlay and identity, starts the EventLoop, and drives an
// interactive shell until Ctrl+C/SIGTERM.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazzery/decent-share/internal/client"
	"github.com/hazzery/decent-share/internal/eventloop"
	"github.com/hazzery/decent-share/internal/infra/config"
	"github.com/hazzery/decent-share/internal/infra/identity"
	"github.com/hazzery/decent-share/internal/infra/logger"
	"github.com/hazzery/decent-share/internal/infra/pr"
	"github.com/hazzery/decent-share/internal/overlay"
	"github.com/hazzery/decent-share/internal/usernamestore"
	"github.com/multiformats/go-multiaddr"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix(time.Now().Format("2006-01-02 15:04:05 "))

	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	env := config.Env()

	logger.Init(env.LogLevel, env.LogFile)
	for _, msg := range config.Warnings() {
		logger.Warn(msg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, err := identity.LoadOrCreate(env.IdentityFile)
	if err != nil {
		log.Fatalf("failed to load identity: %v", err)
	}

	var rendezvousAddr multiaddr.Multiaddr
	if env.RendezvousAddr != "" {
		rendezvousAddr, err = multiaddr.NewMultiaddr(env.RendezvousAddr)
		if err != nil {
			log.Fatalf("invalid RENDEZVOUS_ADDR: %v", err)
		}
	}

	net, err := overlay.New(ctx, key, env.ListenTCPPort, env.ListenQUICPort, rendezvousAddr)
	if err != nil {
		log.Fatalf("failed to start overlay: %v", err)
	}

	var rendezvousTick <-chan struct{}
	if rendezvousAddr != nil {
		rendezvousTick = tickerChannel(ctx, overlay.RendezvousDiscoverPeriod)
	}

	store := usernamestore.New()
	loop := eventloop.New(net, store, env.RendezvousNamespace, rendezvousTick, eventloop.Config{
		CommandQueueSize: env.CommandQueueSize,
		EventQueueSize:   env.EventQueueSize,
	})
	go loop.Run(ctx)

	c := client.New(loop.Commands(), store)
	if err := c.RegisterUsername(env.Username); err != nil {
		logger.Warnf("register username %q: %v", env.Username, err)
	}

	if err := pr.Init(); err != nil {
		log.Fatalf("failed to init interactive shell: %v", err)
	}
	logger.Warn("node started")

	runShell(ctx, c, loop.Events())

	pr.InterruptReadline()
	log.Println("shutdown complete")
}

// tickerChannel adapts a time.Ticker into a receive-only struct{} channel
// that stops cleanly when ctx is done.
func tickerChannel(ctx context.Context, period time.Duration) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

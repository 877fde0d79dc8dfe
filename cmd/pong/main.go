// The pong command runs the game in the terminal. Online play registers
// with the broker given by network.broker_url.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mo-shahab/peer-pong/internal/core"
	"github.com/mo-shahab/peer-pong/loop"
	"github.com/mo-shahab/peer-pong/peer"
	"github.com/mo-shahab/peer-pong/protocol"
	"github.com/mo-shahab/peer-pong/terminal"
	"github.com/mo-shahab/peer-pong/transport"
)

var (
	configFlag = flag.String("config", "", "Path to the directory containing config.yaml")
	idFlag     = flag.String("id", "", "Use this 3 character peer id instead of the generated one")
	logFlag    = flag.String("log", "pong.log", "Log file used when log_file_path is not configured")
)

func main() {
	flag.Parse()

	config, err := core.LoadConfig(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error loading config:", err)
		os.Exit(1)
	}
	// stderr belongs to the screen while playing
	if config.LogFilePath == "" {
		config.LogFilePath = *logFlag
	}

	logger, err := core.NewLogger(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error creating logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(config, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(config *core.Config, logger *zap.SugaredLogger) error {
	codec, err := protocol.ForName(config.Network.Codec)
	if err != nil {
		return err
	}

	var identity peer.Identity = peer.FingerprintIdentity{Fingerprint: peer.HostFingerprint()}
	if *idFlag != "" {
		identity = peer.StaticIdentity(*idFlag)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("interrupted, shutting down")
		cancel()
	}()

	screen, err := terminal.Open(os.Stdin, os.Stdout, terminal.WithLogger(logger.Named("terminal")))
	if err != nil {
		return err
	}
	defer screen.Close()
	screen.Start(ctx)

	newPeer := func() (loop.Peer, error) {
		t := transport.New(config.Network.BrokerURL,
			transport.WithLogger(logger.Named("transport")),
			transport.WithSendQueue(config.Network.SendQueue),
			transport.WithDialTimeout(config.Network.DialTimeout),
		)
		return peer.NewManager(identity, t,
			peer.WithLogger(logger.Named("peer")),
			peer.WithInboxSize(config.Network.InboxSize),
		), nil
	}

	driver := loop.New(config.Game, loop.Options{
		Renderer: screen,
		Input:    screen.Input(),
		Commands: screen.Commands(),
		NewPeer:  newPeer,
		Codec:    codec,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:   logger.Named("loop"),
	})

	logger.Infof("starting pong, peer id %s, codec %s", peer.NormalizeID(identity.ID()), codec.Name())
	return driver.Run(ctx)
}

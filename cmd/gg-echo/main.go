// Command gg-echo runs a small echo lambda against the configured backend.
// On the mock backend it drives one publish, invoke, and shadow round trip
// and prints the dispatch report; built with -tags greengrass_cgo and run
// inside the runtime, it registers the echo handler and blocks serving
// invocations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	greengrass "github.com/gurre/greengrass-core"
	"github.com/gurre/greengrass-core/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("gg-echo", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	backend := fs.String("backend", config.BackendMock, "Backend to run against (mock|native)")
	topic := fs.String("topic", "gg/echo/heartbeat", "Topic for the demo publish")
	thing := fs.String("thing", "gg-echo", "Thing name for the demo shadow update")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg.Backend = *backend
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	client, err := greengrass.New(cfg, greengrass.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	echo := greengrass.HandlerFunc(func(ctx context.Context, payload []byte) ([]byte, error) {
		logger.Info("invocation received", zap.Int("bytes", len(payload)))
		return payload, nil
	})
	if err := client.RegisterHandler(greengrass.EventInvoke, echo); err != nil {
		return fmt.Errorf("failed to register handler: %w", err)
	}

	if cfg.Backend == config.BackendNative {
		fmt.Println("Starting native runtime loop")
		return client.Start()
	}

	// Mock backend: drive one round trip through every operation.
	ctx := context.Background()
	client.Mock().Subscribe(*topic, func(topic string, payload []byte) {
		logger.Info("message delivered", zap.String("topic", topic), zap.ByteString("payload", payload))
	})

	if err := client.Publish(ctx, *topic, []byte(`{"status":"alive"}`)); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	out, err := client.Invoke(ctx, cfg.FunctionArn, []byte("hello"))
	if err != nil {
		return fmt.Errorf("invoke failed: %w", err)
	}
	logger.Info("invoke echoed", zap.ByteString("response", out))

	if _, err := client.UpdateShadow(ctx, *thing, []byte(`{"reported":{"status":"alive"}}`)); err != nil {
		return fmt.Errorf("shadow update failed: %w", err)
	}
	doc, err := client.GetShadow(ctx, *thing)
	if err != nil {
		return fmt.Errorf("shadow get failed: %w", err)
	}
	logger.Info("shadow document", zap.ByteString("doc", doc))

	if err := client.Log(ctx, greengrass.LogInfo, "gg-echo demo complete"); err != nil {
		return fmt.Errorf("log failed: %w", err)
	}

	fmt.Println(client.Metrics())
	return nil
}

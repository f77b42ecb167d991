// Command run lets the trained classifier play the game.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jordanella.com/subway-runner-go/internal/bootstrap"
	"jordanella.com/subway-runner-go/internal/classifier"
	"jordanella.com/subway-runner-go/internal/config"
	"jordanella.com/subway-runner-go/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	settingsPath := flag.String("settings", config.DefaultPath, "Path to settings file")
	modelPath := flag.String("model", "", "Override the model file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Setup(ctx, *settingsPath, "Agent")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer env.Close()

	cfg := env.Config
	if *modelPath != "" {
		cfg.Classifier.ModelPath = *modelPath
	}

	worker, err := classifier.StartWorker(ctx, classifier.WorkerConfig{
		Command:        cfg.Classifier.Command,
		ModelPath:      cfg.Classifier.ModelPath,
		StartupTimeout: cfg.Classifier.StartupTimeout,
		RequestTimeout: cfg.Classifier.RequestTimeout,
	}, env.Logger.Named("Classifier"))
	if err != nil {
		env.Logger.Fatal("Failed to start classifier", err)
		return 1
	}
	defer worker.Close()

	agent := pipeline.NewAgent(env.Bridge, worker, pipeline.AgentOptions{
		Interval:     cfg.Agent.Interval,
		SettleDelay:  cfg.Agent.SettleDelay,
		Package:      cfg.Agent.Package,
		Activity:     cfg.Agent.Activity,
		StopTimeout:  cfg.Device.CommandTimeout,
		ScratchPath:  cfg.ScratchCapturePath(),
		DeviceSerial: cfg.Device.Serial,
		Journal:      env.Journal(),
		Bus:          env.Bus,
		Logger:       env.Logger,
	})

	summary, err := agent.Run(ctx)
	fmt.Print(summary)
	if err != nil {
		env.Logger.Fatal("Agent stopped", err)
		return 1
	}
	return 0
}

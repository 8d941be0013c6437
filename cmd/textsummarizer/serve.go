package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/textsummarizer/ai/metrics"
	"github.com/hrygo/textsummarizer/internal/profile"
	"github.com/hrygo/textsummarizer/plugin/extract"
	"github.com/hrygo/textsummarizer/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the summarization and extraction backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}

		pipeline, llmSvc, err := newPipeline(instanceProfile)
		if err != nil {
			return err
		}
		exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		s, err := server.NewServer(ctx, instanceProfile, server.Deps{
			Summarizer: pipeline,
			Extractor:  extract.NewService(extract.WithRecorder(exporter)),
			Metrics:    exporter,
		})
		if err != nil {
			return err
		}

		c := make(chan os.Signal, 1)
		// SIGTERM is what kill and most process managers send.
		signal.Notify(c, terminationSignals...)
		defer signal.Stop(c)

		if err := s.Start(ctx); err != nil {
			return err
		}
		if llmSvc != nil {
			go llmSvc.Warmup(ctx)
		}
		printGreetings(cmd, instanceProfile, s.Addr())

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		<-ctx.Done()
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "address of server")
	serveCmd.Flags().Int("port", 0, fmt.Sprintf("port of server (default %d)", profile.DefaultPort))
	if err := viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("port", serveCmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
}

func printGreetings(cmd *cobra.Command, p *profile.Profile, addr string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "TextSummarizer %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprint(cmd.ErrOrStderr(), "Development mode is enabled\n")
	}
	fmt.Fprintf(out, "Mode: %s\n", p.Mode)
	if p.IsLLMEnabled() {
		fmt.Fprintf(out, "LLM: %s %s\n", p.LLMProvider, p.LLMModel)
	} else {
		fmt.Fprintln(out, "LLM: not configured, extractive summaries only")
	}
	fmt.Fprintf(out, "Server running on %s\n", addr)
	fmt.Fprintf(out, "Endpoints: POST /api/summarize, POST /api/extract-text, GET /healthz, GET /metrics\n")
}

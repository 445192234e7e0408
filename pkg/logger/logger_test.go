package logger_test

import (
	"bytes"
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/pkg/logger"
)

var _ = Describe("Logger", func() {
	ctx := context.Background()

	Describe("New", func() {
		It("should create a dev logger", func() {
			log := logger.New("info", false, "dev")
			Expect(log).NotTo(BeNil())
		})

		It("should create a prod logger", func() {
			log := logger.New("info", true, "prod")
			Expect(log).NotTo(BeNil())
		})
	})

	DescribeTable("level handling",
		func(level string, enabled, disabled slog.Level) {
			log := logger.New(level, false, "dev")
			Expect(log.Enabled(ctx, enabled)).To(BeTrue())
			Expect(log.Enabled(ctx, disabled)).To(BeFalse())
		},
		Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
		Entry("debug", "debug", slog.LevelDebug, slog.LevelDebug-1),
		Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
		Entry("error", "error", slog.LevelError, slog.LevelWarn),
		Entry("unknown falls back to info", "verbose", slog.LevelInfo, slog.LevelDebug),
		Entry("mixed case", "WARN", slog.LevelWarn, slog.LevelInfo),
	)

	Describe("NewWithWriter", func() {
		It("should write JSON records with the environment in prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "prod")
			log.Info("provider selected", slog.String("provider", "gigachat"))

			Expect(buf.String()).To(HavePrefix("{"))
			Expect(buf.String()).To(ContainSubstring(`"environment":"prod"`))
			Expect(buf.String()).To(ContainSubstring(`"provider":"gigachat"`))
		})

		It("should write text records outside prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "staging")
			log.Info("hello")

			Expect(buf.String()).To(ContainSubstring("environment=staging"))
			Expect(buf.String()).To(ContainSubstring("msg=hello"))
		})
	})

	Describe("Component", func() {
		It("should tag records with the component name", func() {
			var buf bytes.Buffer
			log := logger.Component(logger.NewWithWriter(&buf, "info", false, "dev"), "gateway")
			log.Info("ready")

			Expect(buf.String()).To(ContainSubstring("component=gateway"))
		})

		It("should tolerate a nil logger", func() {
			log := logger.Component(nil, "gateway")
			Expect(log).NotTo(BeNil())
			Expect(log.Enabled(ctx, slog.LevelError)).To(BeFalse())
		})
	})
})

// Package metrics instruments the trust core with OpenTelemetry counters.
//
// Only the otel API is used; no SDK or exporter is carried. Unless the
// embedding program installs a meter provider, every counter is a no-op,
// which keeps the boot path free of observability overhead while letting
// host-side tooling wire up an exporter when it wants one.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("bootcore")

	entropyBlocks    metric.Int64Counter
	bufferRefills    metric.Int64Counter
	selfTestFailures metric.Int64Counter
	rejectionRetries metric.Int64Counter
	verifications    metric.Int64Counter
)

func init() {
	entropyBlocks, _ = meter.Int64Counter("bootcore.entropy.blocks",
		metric.WithDescription("Entropy blocks drawn from the secure source"))
	bufferRefills, _ = meter.Int64Counter("bootcore.rng.refills",
		metric.WithDescription("Entropy buffer refills by quality"))
	selfTestFailures, _ = meter.Int64Counter("bootcore.entropy.selftest_failures",
		metric.WithDescription("Statistical self-test failures on drawn blocks"))
	rejectionRetries, _ = meter.Int64Counter("bootcore.rng.rejection_retries",
		metric.WithDescription("Bounded-integer draws rejected and redrawn"))
	verifications, _ = meter.Int64Counter("bootcore.verify.total",
		metric.WithDescription("Signature verifications by outcome"))
}

// EntropyBlockDrawn records one successful secure-source block read.
func EntropyBlockDrawn() {
	entropyBlocks.Add(context.Background(), 1)
}

// BufferRefilled records one refill of the per-quality entropy buffer.
func BufferRefilled(quality string) {
	bufferRefills.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("quality", quality)))
}

// SelfTestFailed records one statistical self-test failure.
func SelfTestFailed() {
	selfTestFailures.Add(context.Background(), 1)
}

// RejectionRetried records one rejected sample in bounded-integer draws.
func RejectionRetried() {
	rejectionRetries.Add(context.Background(), 1)
}

// VerificationFinished records one signature verification outcome.
func VerificationFinished(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "fail"
	}
	verifications.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

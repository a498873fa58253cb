package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	var buf bytes.Buffer

	shutdown, err := InitTracer("lpci-build", "test", &buf)
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "lpci-build.poll")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"lpci-build.poll", "lpci-build"} {
		if !strings.Contains(out, want) {
			t.Errorf("exported spans lack %q:\n%s", want, out)
		}
	}
}

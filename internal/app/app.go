package app

import (
	"context"
	"net/http"
	"os"

	sdkapp "github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/finexus/catalog-console/internal/catalog"
	"github.com/finexus/catalog-console/internal/notify"
	"github.com/finexus/catalog-console/internal/rest"
	"github.com/finexus/catalog-console/pkg/clientware"
	"github.com/finexus/catalog-console/pkg/loading"
	"github.com/finexus/catalog-console/pkg/toast"
)

// Run creates all dependencies and dispatches the requested console command.
// It is the single wiring point for the application: one toast service, one
// loading tracker, one coordinator per process, torn down when the process
// exits.
func Run(ctx context.Context, lg *zap.Logger, m *sdkapp.Telemetry, cfg *Config, args []string) error {
	lg.Info("Initializing", zap.String("api_url", cfg.APIURL))

	toasts := toast.NewService()
	tracker := loading.New()
	reporter := notify.NewReporter(toasts)

	// Every outbound request flows through this chain: tracing first, then
	// request id, logging, the in-flight counter, and failure reporting
	// closest to the wire so it sees the final outcome.
	mws := []clientware.Middleware{
		clientware.RequestID(),
	}
	if cfg.Verbose {
		mws = append(mws, clientware.LogRequests())
	}
	mws = append(mws,
		clientware.TrackLoading(tracker),
		clientware.ReportFailures(reporter),
	)
	transport := clientware.Wrap(
		otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithSpanOptions(trace.WithAttributes(
				attribute.String("peer.service", "catalog-api"),
			)),
		),
		mws...,
	)

	client, err := rest.NewClient(rest.Config{
		BaseURL:       cfg.APIURL,
		Timeout:       cfg.Timeout,
		HealthTimeout: cfg.HealthTimeout,
		MaxRetries:    cfg.MaxRetries,
	}, transport)
	if err != nil {
		return err
	}

	coordinator := catalog.New(client, catalog.WithFreshness(cfg.CacheTTL))
	resolver := catalog.NewResolver(coordinator)

	c := &console{
		out:         os.Stdout,
		cfg:         cfg,
		lg:          lg,
		client:      client,
		coordinator: coordinator,
		resolver:    resolver,
		toasts:      toasts,
		tracker:     tracker,
	}
	return c.dispatch(ctx, args)
}

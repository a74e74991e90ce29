package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finexus/catalog-console/internal/catalog"
	"github.com/finexus/catalog-console/internal/domain/product"
	"github.com/finexus/catalog-console/internal/rest"
	"github.com/finexus/catalog-console/pkg/loading"
	"github.com/finexus/catalog-console/pkg/monitor"
	"github.com/finexus/catalog-console/pkg/toast"
)

// console renders coordinator state to a terminal. It stands in for the UI
// layer: screens subscribe to the published product list and the toast
// queue, and render whatever arrives.
type console struct {
	out         io.Writer
	cfg         *Config
	lg          *zap.Logger
	client      *rest.Client
	coordinator *catalog.Coordinator
	resolver    *catalog.Resolver
	toasts      *toast.Service
	tracker     *loading.Tracker
}

const usageText = `usage: catalog-console <command> [flags]

commands:
  list     list products, optionally filtered
  get      show a single product by id
  create   create a product
  update   update fields of an existing product
  delete   delete a product by id
  health   check API and database connectivity
  watch    follow the catalog and connectivity state
`

// dispatch routes to the requested subcommand.
func (c *console) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, usageText)
		return errors.New("command required")
	}

	detach := c.attachToasts()
	defer detach()

	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "list":
		return c.runList(ctx, cmdArgs)
	case "get":
		return c.runGet(ctx, cmdArgs)
	case "create":
		return c.runCreate(ctx, cmdArgs)
	case "update":
		return c.runUpdate(ctx, cmdArgs)
	case "delete":
		return c.runDelete(ctx, cmdArgs)
	case "health":
		return c.runHealth(ctx)
	case "watch":
		return c.runWatch(ctx, cmdArgs)
	default:
		fmt.Fprint(c.out, usageText)
		return errors.Errorf("unknown command %q", cmd)
	}
}

// attachToasts mirrors the toast queue to the terminal, printing each
// message once as it arrives.
func (c *console) attachToasts() (detach func()) {
	var mu sync.Mutex
	seen := make(map[string]bool)
	return c.toasts.Subscribe(func(msgs []toast.Message) {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range msgs {
			if !seen[m.ID] {
				seen[m.ID] = true
				fmt.Fprintf(c.out, "[%s] %s\n", m.Tier, m.Text)
			}
		}
	})
}

func (c *console) runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	category := fs.String("category", "", "filter by category")
	minPrice := fs.String("min-price", "", "minimum price")
	maxPrice := fs.String("max-price", "", "maximum price")
	search := fs.String("search", "", "search by name")
	refresh := fs.Bool("refresh", false, "bypass the cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filters := &product.Filters{Category: *category, Search: *search}
	var err error
	if filters.MinPrice, err = parsePrice(*minPrice); err != nil {
		return errors.Wrap(err, "min-price")
	}
	if filters.MaxPrice, err = parsePrice(*maxPrice); err != nil {
		return errors.Wrap(err, "max-price")
	}

	list, err := c.coordinator.FetchAll(ctx, filters, *refresh)
	if err != nil {
		return err
	}
	c.printProducts(list)
	return nil
}

func (c *console) runGet(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	p, err := c.resolver.Ensure(ctx, id)
	if err != nil {
		return err
	}
	c.printDetail(p)
	return nil
}

func (c *console) runCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "product name")
	priceStr := fs.String("price", "", "product price")
	stock := fs.Int("stock", 0, "stock quantity")
	description := fs.String("description", "", "product description")
	category := fs.String("category", "", "product category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	price, err := decimal.NewFromString(*priceStr)
	if err != nil {
		return errors.Wrap(err, "price")
	}

	in := product.CreateProduct{
		Name:        *name,
		Description: *description,
		Price:       price,
		Stock:       *stock,
	}
	if *category != "" {
		in.Category = category
	}

	created, err := c.coordinator.Create(ctx, in)
	if err != nil {
		return err
	}
	c.toasts.Success(fmt.Sprintf("Product %q created with id %d", created.Name, created.ID))
	c.printDetail(created)
	return nil
}

func (c *console) runUpdate(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	name := fs.String("name", "", "product name")
	priceStr := fs.String("price", "", "product price")
	stock := fs.Int("stock", 0, "stock quantity")
	description := fs.String("description", "", "product description")
	category := fs.String("category", "", "product category")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	// Only flags the caller actually set travel in the payload.
	var in product.UpdateProduct
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			in.Name = name
		case "price":
			p, err := decimal.NewFromString(*priceStr)
			if err != nil {
				parseErr = errors.Wrap(err, "price")
				return
			}
			in.Price = &p
		case "stock":
			in.Stock = stock
		case "description":
			in.Description = description
		case "category":
			in.Category = category
		}
	})
	if parseErr != nil {
		return parseErr
	}

	updated, err := c.coordinator.Update(ctx, id, in)
	if err != nil {
		return err
	}
	c.toasts.Success(fmt.Sprintf("Product %d updated", updated.ID))
	c.printDetail(updated)
	return nil
}

func (c *console) runDelete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	if err := c.coordinator.Delete(ctx, id); err != nil {
		return err
	}
	c.toasts.Success(fmt.Sprintf("Product %d deleted", id))
	return nil
}

// runHealth probes the API and its database in parallel.
func (c *console) runHealth(ctx context.Context) error {
	var (
		api *rest.HealthStatus
		db  *rest.DatabaseStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		api, err = c.client.CheckHealth(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		db, err = c.client.CheckDatabase(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "api: %s\n", api.Message)
	fmt.Fprintf(c.out, "database: %d products\n", db.Count)
	return nil
}

// runWatch follows the catalog: it re-renders the table on every published
// list, refreshes periodically, and reports connectivity changes until the
// context is cancelled.
func (c *console) runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	refreshEvery := fs.Duration("refresh-every", time.Minute, "forced refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cancelList := c.coordinator.SubscribeProducts(func(list []product.Product) {
		c.printProducts(list)
	})
	defer cancelList()

	cancelLoading := c.tracker.Subscribe(func(visible bool) {
		if visible {
			c.lg.Debug("Loading")
		}
	})
	defer cancelLoading()

	mon := monitor.New()
	mon.AddProbe("api", c.cfg.HealthTimeout, func(ctx context.Context) error {
		_, err := c.client.CheckHealth(ctx)
		return err
	})
	mon.AddProbe("database", c.cfg.HealthTimeout, func(ctx context.Context) error {
		_, err := c.client.CheckDatabase(ctx)
		return err
	})
	cancelMon := mon.Subscribe(func(ev monitor.Event) {
		if ev.Up {
			c.toasts.Success(fmt.Sprintf("Connection to %s restored", ev.Probe))
			return
		}
		c.toasts.Error(fmt.Sprintf("Connection to %s lost", ev.Probe))
	})
	defer cancelMon()
	mon.Start(ctx, c.cfg.Monitor.Interval)
	defer mon.Stop()

	if _, err := c.coordinator.FetchAll(ctx, nil, false); err != nil {
		c.lg.Warn("Initial fetch failed", zap.Error(err))
	}

	ticker := time.NewTicker(*refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.coordinator.FetchAll(ctx, nil, true); err != nil {
				c.lg.Warn("Refresh failed", zap.Error(err))
			}
		}
	}
}

func (c *console) printProducts(list []product.Product) {
	w := tabwriter.NewWriter(c.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY")
	for _, p := range list {
		category := ""
		if p.Category != nil {
			category = *p.Category
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock, category)
	}
	_ = w.Flush()
}

func (c *console) printDetail(p *product.Product) {
	fmt.Fprintf(c.out, "id:          %d\n", p.ID)
	fmt.Fprintf(c.out, "name:        %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(c.out, "description: %s\n", p.Description)
	}
	fmt.Fprintf(c.out, "price:       %s\n", p.Price.StringFixed(2))
	fmt.Fprintf(c.out, "stock:       %d\n", p.Stock)
	if p.Category != nil {
		fmt.Fprintf(c.out, "category:    %s\n", *p.Category)
	}
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(c.out, "updated:     %s\n", p.UpdatedAt.Format(time.RFC3339))
	}
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("product id required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse id %q", args[0])
	}
	return id, nil
}

func parsePrice(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

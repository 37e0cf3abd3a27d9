package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/app"
	"github.com/km-arc/go-container/framework/config"
	"github.com/km-arc/go-container/framework/container"
	gohttp "github.com/km-arc/go-container/framework/http"
	"github.com/km-arc/go-container/framework/routing"
)

// ── Demo services ────────────────────────────────────────────────────────────

type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Mailer struct {
	from string
	log  *zap.Logger
}

func NewMailer(from string, log *zap.Logger) *Mailer {
	return &Mailer{from: from, log: log.Named("mailer")}
}

func (m *Mailer) Send(to, subject string) {
	m.log.Info("mail sent", zap.String("from", m.from), zap.String("to", to), zap.String("subject", subject))
}

type Newsletter struct {
	mailer      *Mailer
	clock       Clock
	subscribers []string
}

func NewNewsletter(mailer *Mailer, clock Clock, subscribers ...string) *Newsletter {
	return &Newsletter{mailer: mailer, clock: clock, subscribers: subscribers}
}

func (n *Newsletter) Publish(subject string) (int, time.Time) {
	for _, to := range n.subscribers {
		n.mailer.Send(to, subject)
	}
	return len(n.subscribers), n.clock.Now()
}

// ── NewsletterServiceProvider ────────────────────────────────────────────────

// NewsletterServiceProvider wires the demo with both styles: explicit
// factories for the clock and sender address, autowiring for the rest.
type NewsletterServiceProvider struct {
	container.BaseProvider
}

func (p *NewsletterServiceProvider) Register(c *container.Container) error {
	err := c.RegisterFactories(map[string]container.Factory{
		container.KeyOf[Clock](): func(*container.Container) (any, error) {
			return systemClock{}, nil
		},
		"mail.from": func(c *container.Container) (any, error) {
			cfg, err := container.Resolve[*config.Config](c, "config")
			if err != nil {
				return nil, err
			}
			return config.Get("MAIL_FROM", "newsletter@"+cfg.App.Name+".local"), nil
		},
	})
	if err != nil {
		return err
	}

	catalog := container.NewCatalog()
	catalog.MustAdd(NewMailer, container.WithParamNames("from", "log"))
	catalog.MustAdd(NewNewsletter, container.WithParamNames("mailer", "clock", "subscribers"))

	resolver := container.NewConstructorResolver(c, catalog)
	resolver.When(container.KeyOf[Mailer]()).Needs("from").Give("mail.from")
	resolver.When(container.KeyOf[Newsletter]()).
		Needs("subscribers").
		GiveValue(strings.Split(config.Get("NEWSLETTER_SUBSCRIBERS", "alice@example.com,bob@example.com"), ","))
	c.AddResolver(resolver)
	return nil
}

// ── main ─────────────────────────────────────────────────────────────────────

func main() {
	application, err := app.New() // loads .env automatically
	if err != nil {
		panic(err)
	}
	if err := application.Register(&NewsletterServiceProvider{}); err != nil {
		panic(err)
	}
	if err := application.Boot(); err != nil {
		panic(err)
	}
	logger := application.Logger()

	// Resolved up front: the container builds values on one goroutine.
	newsletter, err := container.Make[*Newsletter](application.Container)
	if err != nil {
		logger.Fatal("newsletter unavailable", zap.Error(err))
	}

	application.Router().Prefix("/api/v1", func(api *routing.Router) {
		// POST /api/v1/newsletter/publish?subject=...
		api.Post("/newsletter/publish", func(w http.ResponseWriter, r *http.Request) {
			subject := r.URL.Query().Get("subject")
			if subject == "" {
				subject = "News"
			}
			sent, at := newsletter.Publish(subject)
			gohttp.NewResponse(w).Success(map[string]any{"sent": sent, "at": at})
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

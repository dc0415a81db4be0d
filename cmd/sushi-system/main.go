package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	appbusiness "sushi-system/internal/app/business"
	apporder "sushi-system/internal/app/order"
	"sushi-system/internal/app/tracking"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/config"
	"sushi-system/internal/connections/rabbitmq"
	"sushi-system/internal/domain"
	"sushi-system/internal/microservices/notificator"
)

const modes = "business | register-user | place-order | order-history | notification-subscriber"

func main() {
	mode := flag.String("mode", "", modes)
	cfgPath := flag.String("config", "", "path to YAML config (default: $SUSHI_CONFIG, ./config.yaml, configs/config.yaml)")
	seed := flag.String("seed", "", "business: YAML stock seed, used when the data directory has no snapshot")
	username := flag.String("username", "", "customer username")
	password := flag.String("password", "", "customer password")
	email := flag.String("email", "", "register-user: email")
	postcode := flag.String("postcode", "", "register-user: delivery postcode, e.g. SO17")
	items := flag.String("items", "", `place-order: dishes, e.g. "Maki=2,Nigiri=1"`)
	total := flag.String("total", "", "place-order: expected total; rejected if it differs from the menu price")
	flag.Parse()

	_ = godotenv.Load()

	path := *cfgPath
	if path == "" {
		path = config.FindConfig()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	lg := logger.NewWithOptions("bootstrap", logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "business":
		lg.Info("service_started", map[string]any{"service": "business", "config": path})
		err = runBusiness(ctx, cfg, lg, *seed)
	case "register-user":
		err = withClient(ctx, cfg, lg, func(c *apporder.Client) error {
			user, err := c.Register(ctx, domain.RegisterUserRequest{
				Username: *username, Password: *password, Email: *email, Postcode: *postcode,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"username": user.Username, "postcode": user.Postcode})
		})
	case "place-order":
		err = withClient(ctx, cfg, lg, func(c *apporder.Client) error {
			parsed, err := apporder.ParseItems(*items)
			if err != nil {
				return err
			}
			expected := decimal.Zero
			if *total != "" {
				if expected, err = decimal.NewFromString(*total); err != nil {
					return fmt.Errorf("--total: %w", err)
				}
			}
			order, err := c.Place(ctx, *username, *password, parsed, expected)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"order_id": order.ID, "status": order.Status, "total": order.Total.StringFixed(2)})
		})
	case "order-history":
		err = withClient(ctx, cfg, lg, func(c *apporder.Client) error {
			history, err := c.History(ctx, *username, *password)
			if err != nil {
				return err
			}
			return printJSON(history)
		})
	case "notification-subscriber":
		lg.Info("service_started", map[string]any{"service": "notification-subscriber"})
		err = runSubscriber(ctx, cfg, lg)
	default:
		fmt.Fprintln(os.Stderr, "--mode is required:", modes)
		os.Exit(2)
	}
	if err != nil {
		lg.Error("fatal", err, map[string]any{"mode": *mode})
		os.Exit(1)
	}
}

func runBusiness(ctx context.Context, cfg *config.Config, lg *logger.Logger, seed string) error {
	collab, err := tracking.Connect(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer collab.Close()

	app, err := appbusiness.New(cfg, lg, appbusiness.Options{SeedPath: seed, Observers: collab.Observers})
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func withClient(ctx context.Context, cfg *config.Config, lg *logger.Logger, fn func(*apporder.Client) error) error {
	collab, err := tracking.Connect(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer collab.Close()

	client, err := apporder.NewClient(cfg, lg.Named("client"), collab.Tracker, collab.Observers...)
	if err != nil {
		return err
	}
	return fn(client)
}

func runSubscriber(ctx context.Context, cfg *config.Config, lg *logger.Logger) error {
	client, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer client.Close()
	return notificator.Subscribe(ctx, client, cfg.RabbitMQ, lg)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

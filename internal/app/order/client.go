package order

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/config"
	"sushi-system/internal/connections/filestore"
	"sushi-system/internal/domain"
	"sushi-system/internal/inventory"
	"sushi-system/internal/microservices/order/repository"
	orderservice "sushi-system/internal/microservices/order/service"
	"sushi-system/internal/microservices/tracker/models"
	trackerservice "sushi-system/internal/microservices/tracker/service"
)

// Client is what a customer process uses: register, place orders and read
// history. It shares the data directory with the running business.
type Client struct {
	cfg       *config.Config
	log       *logger.Logger
	store     *filestore.Store
	repo      *repository.Repository
	users     *orderservice.UserService
	tracker   *trackerservice.TrackerService
	observers []orderservice.StatusObserver
}

func NewClient(cfg *config.Config, log *logger.Logger, tracker *trackerservice.TrackerService, observers ...orderservice.StatusObserver) (*Client, error) {
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	repo := repository.New(store)
	return &Client{
		cfg:       cfg,
		log:       log,
		store:     store,
		repo:      repo,
		users:     orderservice.NewUserService(repo.UserRepo, cfg.Password, log),
		tracker:   tracker,
		observers: observers,
	}, nil
}

func (c *Client) Register(ctx context.Context, req domain.RegisterUserRequest) (domain.User, error) {
	return c.users.Register(ctx, req)
}

// Place authenticates the customer and submits the order priced against
// the menu last saved by the business.
func (c *Client) Place(ctx context.Context, username, password string, items map[string]int, total decimal.Decimal) (domain.Order, error) {
	if _, err := c.users.Authenticate(ctx, username, password); err != nil {
		return domain.Order{}, err
	}
	menu, err := c.menu()
	if err != nil {
		return domain.Order{}, err
	}
	orders := orderservice.NewOrderService(*c.repo, menu, c.log, nil, c.observers...)
	return orders.Submit(ctx, domain.PlaceOrderRequest{Username: username, Items: items, Total: total})
}

func (c *Client) menu() (*inventory.DishLedger, error) {
	snap, err := inventory.NewSnapshotRepository(c.store).Load()
	if errors.Is(err, inventory.ErrNoSnapshot) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no menu saved yet; start the business first")
	}
	if err != nil {
		return nil, err
	}
	catalog := inventory.NewCatalog(inventory.NewIngredientLedger(c.log, nil), inventory.NewDishLedger(c.log, nil))
	if err := catalog.Restore(snap); err != nil {
		return nil, err
	}
	return catalog.Dishes, nil
}

type HistoryEntry struct {
	Order    domain.Order          `json:"order"`
	Timeline []models.StatusChange `json:"timeline,omitempty"`
}

// History lists the customer's orders. With the audit log enabled each
// entry also carries its status timeline.
func (c *Client) History(ctx context.Context, username, password string) ([]HistoryEntry, error) {
	if _, err := c.users.Authenticate(ctx, username, password); err != nil {
		return nil, err
	}
	orders, err := c.repo.OrderRepo.ListByUser(ctx, username)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(orders))
	for _, o := range orders {
		entry := HistoryEntry{Order: o}
		if c.tracker != nil {
			timeline, err := c.tracker.GetOrderTimeline(ctx, o.ID, o.CreatedAt, 0, 0)
			if err != nil {
				c.log.Warn("timeline_unavailable", err, map[string]any{"order_id": o.ID})
			}
			entry.Timeline = timeline
		}
		out = append(out, entry)
	}
	return out, nil
}

// ParseItems reads "Maki=2,Nigiri=1". A bare name means one portion.
func ParseItems(raw string) (map[string]int, error) {
	items := map[string]int{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, qty, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		n := 1
		if found {
			v, err := strconv.Atoi(strings.TrimSpace(qty))
			if err != nil || v <= 0 {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "bad quantity in %q", part)
			}
			n = v
		}
		if name == "" {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "missing dish name in %q", part)
		}
		items[name] += n
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items given")
	}
	return items, nil
}

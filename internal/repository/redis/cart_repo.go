package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/DRSN-tech/checkout-backend/internal/cfg"
	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/checkout-backend/pkg/clients"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/DRSN-tech/checkout-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	goredis "github.com/redis/go-redis/v9"
)

// CartRepo хранит корзину пользователя в хэше cart:{user_id}. Поля хэша: id товара -> JSON позиции.
// Каждое сохранение продлевает TTL.
type CartRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCartRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *CartRepo {
	return &CartRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

func (r *CartRepo) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	fields, err := r.client.Client.HGetAll(ctx, r.cartKey(userID)).Result()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	items := make([]domain.CartItem, 0, len(fields))
	for field, value := range fields {
		productID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			r.logger.Warnf("Skipping malformed cart field. user_id: %s, field: %s", userID, field)
			continue
		}

		var model converter.CartItemRedisModel
		if err := json.Unmarshal([]byte(value), &model); err != nil {
			r.logger.Warnf("Skipping malformed cart item. user_id: %s, product_id: %d: %v", userID, productID, err)
			continue
		}

		items = append(items, converter.CartItemFromRedisModel(productID, model))
	}

	return domain.RestoreCart(userID, items), nil
}

// Save атомарно заменяет содержимое корзины.
func (r *CartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	key := r.cartKey(cart.UserID)

	values := make([]any, 0, cart.Len()*2)
	for _, item := range cart.Items() {
		data, err := json.Marshal(converter.CartItemToRedisModel(item))
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		values = append(values, strconv.FormatInt(item.ProductID, 10), data)
	}

	_, err := r.client.Client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
			pipe.Expire(ctx, key, r.cfg.CartTTL)
		}
		return nil
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (r *CartRepo) Delete(ctx context.Context, userID string) error {
	if err := r.client.Client.Del(ctx, r.cartKey(userID)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (r *CartRepo) cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
	"phenotips.org/pedigree/utils/maps"
	"time"
)

type DB int
type ReleaseLock func() error
type Error error

// ErrNotFound is returned for keys that do not exist.
var ErrNotFound = errors.New("key not found")

const scanBatch = 500

type Client struct {
	client         redis.UniversalClient
	lockExpiration time.Duration
}

type Config struct {
	LockExpirationSeconds   int     `envconfig:"PHENOTIPS_REDIS_LOCK_EXPIRATION" default:"3"`
	Host                    string  `envconfig:"PHENOTIPS_REDIS_HOST" required:"true"`
	Port                    string  `envconfig:"PHENOTIPS_REDIS_PORT" required:"true"`
	HASentinelPort          string  `envconfig:"PHENOTIPS_REDIS_HA_SENTINEL_PORT" default:"26379"`
	HASentinelMasterName    string  `envconfig:"PHENOTIPS_REDIS_HA_MASTER_NAME" default:"mymaster"`
	Password                string  `envconfig:"PHENOTIPS_REDIS_AUTH_PASSWORD" default:"0"`
	AuthRequired            bool    `envconfig:"PHENOTIPS_REDIS_AUTH_REQUIRED" default:"false"`
	HAMode                  bool    `envconfig:"PHENOTIPS_REDIS_HA_MODE" default:"false"`
	HASentinelSocketTimeout float32 `envconfig:"PHENOTIPS_REDIS_SOCKET_TIMEOUT" default:"0.5"`
}

func NewClient(db DB) (Client, error) {
	cfg, err := readEnvironment()
	if err != nil {
		return Client{}, err
	}
	var client redis.UniversalClient
	if cfg.HAMode {
		client = CreateClusterClient(cfg, db)
	} else {
		client = CreateClient(cfg, db)
	}
	return Client{
		client:         client,
		lockExpiration: time.Duration(cfg.LockExpirationSeconds) * time.Second,
	}, nil
}

func CreateClusterClient(cfg *Config, db DB) *redis.ClusterClient {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.HASentinelPort)
	timeout := time.Duration(cfg.HASentinelSocketTimeout * float32(time.Second))
	options := redis.FailoverOptions{
		SentinelAddrs: []string{addr},
		ReadTimeout:   timeout,
		WriteTimeout:  timeout,
		MaxRetries:    6,
		DB:            int(db),
		MasterName:    cfg.HASentinelMasterName,
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewFailoverClusterClient(&options)
}

func CreateClient(cfg *Config, db DB) *redis.Client {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	options := redis.Options{
		Addr:       addr,
		MaxRetries: 6,
		DB:         int(db),
	}
	if cfg.AuthRequired {
		options.Password = cfg.Password
	}
	return redis.NewClient(&options)
}

// GetRaw returns the stored bytes of redisKey, ErrNotFound if there are none.
func (client *Client) GetRaw(ctx context.Context, redisKey string) ([]byte, error) {
	b, err := client.client.Get(ctx, redisKey).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, redisKey)
	}
	if err != nil {
		return nil, err.(Error)
	}
	return b, nil
}

func (client *Client) SaveRaw(ctx context.Context, redisKey string, b []byte) error {
	response := client.client.Set(ctx, redisKey, b, 0)
	if response.Err() != nil {
		return response.Err().(Error)
	}
	return nil
}

func (client *Client) GetPartialDocument(ctx context.Context, redisKey string, doc maps.PartialDocument) error {
	b, err := client.GetRaw(ctx, redisKey)
	if err != nil {
		return err
	}
	if err = maps.FillFromJSON(doc, b); err != nil {
		return fmt.Errorf("document %s is not a JSON object: %w", redisKey, err)
	}
	return nil
}

func (client *Client) UpdatePartialDocument(
	ctx context.Context,
	redisKey string,
	doc maps.PartialDocument,
	updateFunc interface{}) (err error) {
	releaseLock, err := client.Lock(ctx, redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = releaseLock()
			return
		}
		err = releaseLock()
	}()
	err = client.GetPartialDocument(ctx, redisKey, doc)
	if err != nil {
		return err
	}
	err = maps.ApplyUpdates(doc, updateFunc)
	if err != nil {
		return err
	}
	return client.SaveDoc(ctx, redisKey, doc)
}

func (client *Client) Lock(ctx context.Context, redisKey string) (ReleaseLock, error) {
	lockCl := redislock.New(client.client)
	str := redislock.LimitRetry(redislock.LinearBackoff(time.Second), 20)
	lockKey := fmt.Sprintf("lock:%s", redisKey)
	lock, err := lockCl.Obtain(ctx, lockKey, client.lockExpiration, &redislock.Options{RetryStrategy: str})
	if err != nil {
		return nil, err
	}
	return func() error {
		return lock.Release(ctx)
	}, nil
}

func (client *Client) SaveDoc(ctx context.Context, redisKey string, document maps.PartialDocument) error {
	b, err := json.Marshal(document)
	if err != nil {
		return err
	}
	return client.SaveRaw(ctx, redisKey, b)
}

// ScanKeys lists every key matching pattern.
func (client *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := client.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (client *Client) AddToSet(ctx context.Context, setKey string, members ...string) error {
	values := make([]interface{}, 0, len(members))
	for _, member := range members {
		values = append(values, member)
	}
	return client.client.SAdd(ctx, setKey, values...).Err()
}

func (client *Client) IsInSet(ctx context.Context, setKey string, member string) (bool, error) {
	return client.client.SIsMember(ctx, setKey, member).Result()
}

func (client *Client) Close() error {
	return client.client.Close()
}

func readEnvironment() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

// ResourceManager owns the throwaway containers shared by the integration
// tests. Containers are started lazily on first use and torn down by Cleanup.
type ResourceManager struct {
	mu    sync.Mutex
	pool  *dockertest.Pool
	redis *dockertest.Resource
	addr  string
}

var (
	managerOnce sync.Once
	manager     *ResourceManager
	managerErr  error
)

// GetOrInitResource returns the process-wide resource manager, connecting to
// the local docker daemon on first call. The second return reports whether
// this call created the manager.
func GetOrInitResource() (*ResourceManager, bool, error) {
	created := false
	managerOnce.Do(func() {
		created = true

		pool, err := dockertest.NewPool("")
		if err != nil {
			managerErr = fmt.Errorf("connect to docker: %w", err)
			return
		}
		pool.MaxWait = 120 * time.Second

		err = pool.Client.Ping()
		if err != nil {
			managerErr = fmt.Errorf("ping docker: %w", err)
			return
		}

		manager = &ResourceManager{pool: pool}
	})
	return manager, created, managerErr
}

// SetupRedis starts a redis container on first use and returns its address
// together with a flush function that wipes the keyspace, so each test starts
// from an empty cache.
func (m *ResourceManager) SetupRedis() (string, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redis == nil {
		resource, err := m.pool.RunWithOptions(&dockertest.RunOptions{
			Repository: "redis",
			Tag:        "7-alpine",
		}, func(config *docker.HostConfig) {
			config.AutoRemove = true
		})
		if err != nil {
			return "", nil, fmt.Errorf("start redis container: %w", err)
		}

		addr := fmt.Sprintf("localhost:%s", resource.GetPort("6379/tcp"))
		err = m.pool.Retry(func() error {
			client := redis.NewClient(&redis.Options{Addr: addr})
			defer func() {
				_ = client.Close()
			}()
			return client.Ping(context.Background()).Err()
		})
		if err != nil {
			_ = m.pool.Purge(resource)
			return "", nil, fmt.Errorf("wait for redis: %w", err)
		}

		m.redis = resource
		m.addr = addr
	}

	addr := m.addr
	flush := func() {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer func() {
			_ = client.Close()
		}()
		_ = client.FlushAll(context.Background()).Err()
	}
	return addr, flush, nil
}

// Cleanup purges every container the manager started. Safe to call more than
// once.
func (m *ResourceManager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redis != nil {
		err := m.pool.Purge(m.redis)
		if err != nil {
			return fmt.Errorf("purge redis container: %w", err)
		}
		m.redis = nil
		m.addr = ""
	}
	return nil
}

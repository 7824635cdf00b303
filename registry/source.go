package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/zero-day-ai/aitool"
	"github.com/zero-day-ai/aitool/descriptor"
)

// SourceConfig configures an etcd-backed descriptor source.
type SourceConfig struct {
	// Endpoints is the etcd cluster to connect to.
	Endpoints []string

	// Prefix is the key prefix under which descriptor JSON documents
	// live, one document per key. Defaults to "/aitool/descriptors/".
	Prefix string

	// DialTimeout bounds connection establishment. Defaults to 5s.
	DialTimeout time.Duration

	// Logger records skipped documents and reload activity. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Source keeps a Store in sync with descriptor documents held in etcd.
// Every change under the watched prefix triggers a full rebuild and an
// atomic snapshot swap; a malformed or duplicate document is logged and
// skipped so one bad upload cannot take down the serving set.
type Source struct {
	client *clientv3.Client
	prefix string
	store  *Store
	logger *slog.Logger
}

// NewSource connects to etcd and binds the source to a store. The
// caller owns the store; Close releases the etcd connection.
func NewSource(cfg SourceConfig, store *Store) (*Source, error) {
	const op = "registry.NewSource"

	if len(cfg.Endpoints) == 0 {
		return nil, &aitool.Error{Op: op, Kind: aitool.KindConfiguration,
			Err: fmt.Errorf("endpoints cannot be empty")}
	}
	if store == nil {
		return nil, &aitool.Error{Op: op, Kind: aitool.KindConfiguration,
			Err: fmt.Errorf("store cannot be nil")}
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "/aitool/descriptors/"
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, &aitool.Error{Op: op, Kind: aitool.KindNetwork,
			Err: fmt.Errorf("failed to create etcd client: %w", err)}
	}

	return &Source{
		client: cli,
		prefix: prefix,
		store:  store,
		logger: logger.With("prefix", prefix),
	}, nil
}

// Load reads every descriptor document under the prefix, builds a fresh
// snapshot, and swaps it into the store. Documents that fail to parse
// or collide on id are skipped with a warning.
func (s *Source) Load(ctx context.Context) error {
	const op = "registry.Source.Load"

	resp, err := s.client.Get(ctx, s.prefix, clientv3.WithPrefix())
	if err != nil {
		return &aitool.Error{Op: op, Kind: aitool.KindNetwork,
			Err: fmt.Errorf("etcd get failed: %w", err)}
	}

	seen := make(map[string]bool, len(resp.Kvs))
	descriptors := make([]*descriptor.Descriptor, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		d, err := descriptor.Load(kv.Value, false)
		if err != nil {
			s.logger.Warn("skipping malformed descriptor document",
				"key", string(kv.Key), "error", err)
			continue
		}
		if seen[d.ID] {
			s.logger.Warn("skipping duplicate descriptor id",
				"key", string(kv.Key), "tool_id", d.ID)
			continue
		}
		seen[d.ID] = true
		descriptors = append(descriptors, d)
	}

	snapshot, err := NewSnapshot(descriptors)
	if err != nil {
		// Unreachable given the duplicate filter above, but a partial
		// swap is never acceptable.
		return err
	}

	s.store.Swap(snapshot)
	s.logger.Info("descriptor snapshot swapped", "tools", snapshot.Len())
	return nil
}

// Watch blocks, rebuilding and swapping the snapshot on every change
// under the prefix, until the context is cancelled or the watch channel
// closes. Callers typically run it in its own goroutine after an
// initial Load.
func (s *Source) Watch(ctx context.Context) error {
	watch := s.client.Watch(ctx, s.prefix, clientv3.WithPrefix())

	for resp := range watch {
		if err := resp.Err(); err != nil {
			return &aitool.Error{Op: "registry.Source.Watch", Kind: aitool.KindNetwork,
				Err: fmt.Errorf("etcd watch failed: %w", err)}
		}
		if len(resp.Events) == 0 {
			continue
		}
		if err := s.Load(ctx); err != nil {
			s.logger.Warn("snapshot rebuild failed, keeping previous snapshot", "error", err)
		}
	}

	return ctx.Err()
}

// Close releases the etcd connection.
func (s *Source) Close() error {
	return s.client.Close()
}

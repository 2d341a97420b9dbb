// Package redissource keeps raw layer documents in Redis. Each layer is a
// hash holding its name, document and topology object key; a set indexes
// the layer names.
package redissource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/wherewolf/internal/source"
)

const (
	fieldName   = "name"
	fieldDoc    = "doc"
	fieldObject = "object"
	fieldAll    = "all"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

type Store struct {
	rdb    *redis.Client
	prefix string
}

// New connects and pings. prefix namespaces every key; "wherewolf" when
// empty.
func New(ctx context.Context, addr, prefix string, opts ...Option) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if prefix == "" {
		prefix = "wherewolf"
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     16,
		MinIdleConns: 1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb, prefix: prefix}, nil
}

func (s *Store) indexKey() string { return s.prefix + ":layers" }

// LayerKey is readable and collision free: distinct names that sanitize to
// the same text still differ in the hash suffix.
func (s *Store) LayerKey(name string) string {
	return fmt.Sprintf("%s:layer:%s:%016x", s.prefix, sanitize(name), xxhash.Sum64String(name))
}

func (s *Store) Put(ctx context.Context, doc source.Document) error {
	if doc.Name == "" {
		return errors.New("redis put: layer name is required")
	}
	key := s.LayerKey(doc.Name)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldName, doc.Name,
			fieldDoc, doc.Data,
			fieldObject, doc.Object,
			fieldAll, strconv.FormatBool(doc.All),
		)
		p.SAdd(ctx, s.indexKey(), doc.Name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put %q: %w", doc.Name, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, name string) (source.Document, error) {
	vals, err := s.rdb.HGetAll(ctx, s.LayerKey(name)).Result()
	if err != nil {
		return source.Document{}, fmt.Errorf("redis get %q: %w", name, err)
	}
	data, ok := vals[fieldDoc]
	if !ok {
		return source.Document{}, fmt.Errorf("%w: %q", source.ErrNotFound, name)
	}
	all, _ := strconv.ParseBool(vals[fieldAll])
	return source.Document{
		Name:   vals[fieldName],
		Data:   []byte(data),
		Object: vals[fieldObject],
		All:    all,
	}, nil
}

// Delete is idempotent.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.LayerKey(name))
		p.SRem(ctx, s.indexKey(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %q: %w", name, err)
	}
	return nil
}

// Names returns the indexed layer names, sorted.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	names, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis names: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

// Load returns every indexed document. Names whose hash has vanished are
// skipped.
func (s *Store) Load(ctx context.Context) ([]source.Document, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]source.Document, 0, len(names))
	for _, n := range names {
		d, err := s.Get(ctx, n)
		if errors.Is(err, source.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *Store) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

package driftlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

// Sink appends one serialized payload. Implementations must be safe for
// concurrent use.
type Sink interface {
	Name() string
	Write(ctx context.Context, line []byte) error
}

// FileSink appends JSON lines to a local file. The parent directory is
// created on first write.
type FileSink struct {
	path string
	mu   sync.Mutex
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create drift log directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open drift log: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("append drift log: %w", err)
	}
	return nil
}

// unavailableSink stands in for a sink whose client could not be built.
// Every write fails, so the outage is counted like any other write failure.
type unavailableSink struct {
	name  string
	cause error
}

func (s unavailableSink) Name() string { return s.name }

func (s unavailableSink) Write(context.Context, []byte) error {
	return fmt.Errorf("%s sink unavailable: %w", s.name, s.cause)
}

// RedisSink pushes payloads onto the tail of a list.
type RedisSink struct {
	client *redis.Client
	key    string
}

func NewRedisSink(client *redis.Client, key string) *RedisSink {
	return &RedisSink{client: client, key: key}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, line []byte) error {
	if err := s.client.RPush(ctx, s.key, line).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", s.key, err)
	}
	return nil
}

// ElasticsearchSink indexes each payload as a document with a logged_at
// timestamp so drift can be charted over time.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
	now    func() time.Time
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index, now: time.Now}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) Write(ctx context.Context, line []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(line, &doc); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	doc["logged_at"] = s.now().UTC().Format(time.RFC3339Nano)

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document: %s", res.Status())
	}
	return nil
}

package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-scoring/internal/common/config"
)

func TestNewSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracking.db")

	db, err := NewSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Ping(context.Background(), db))
	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	assert.NoError(t, err)
	assert.FileExists(t, path)
}

func TestPing_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, Ping(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_DoesNotConnectEagerly(t *testing.T) {
	db, err := NewPostgres(config.PostgresConfig{
		Host: "127.0.0.1", Port: 1, Database: "credit", User: "u", Password: "p",
		MaxConnections: 4, MaxIdle: 2, SSLMode: "disable",
	})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}

func TestRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()

	assert.NoError(t, PingRedis(context.Background(), client))

	mr.Close()
	assert.Error(t, PingRedis(context.Background(), client))
}

func TestElasticsearch_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	es, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	assert.NoError(t, PingElasticsearch(context.Background(), es))
}

package cirrus_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	cirrus "github.com/jcarreira/cirrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string
	Age  int
}

func jsonSerializer(v record) ([]byte, error)     { return json.Marshal(v) }
func jsonDeserializer(b []byte) (record, error) {
	var v record
	err := json.Unmarshal(b, &v)
	return v, err
}

func startCirrusServer(t *testing.T, capacity uint64) string {
	t.Helper()
	cfg := cirrus.DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Capacity = capacity

	srv := cirrus.NewMemoryServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	for i := 0; i < 200; i++ {
		if addr := srv.Addr(); addr != nil {
			return addr.String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server did not come up")
	return ""
}

func dialCirrusClient(t *testing.T, addr string) *cirrus.Client {
	t.Helper()
	cfg := cirrus.DefaultClientConfig()
	cfg.ServerAddr = addr
	c, err := cirrus.Dial(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestObjectStoreGetPutRemove(t *testing.T) {
	addr := startCirrusServer(t, 1<<20)
	client := dialCirrusClient(t, addr)
	store := cirrus.NewObjectStore[record](client, jsonSerializer, jsonDeserializer)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, 1, record{Name: "Ada", Age: 30}))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, record{Name: "Ada", Age: 30}, got)

	removed, err := store.Remove(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestObjectStoreBulkRoundTrip(t *testing.T) {
	addr := startCirrusServer(t, 1<<20)
	client := dialCirrusClient(t, addr)
	store := cirrus.NewObjectStore[record](client, jsonSerializer, jsonDeserializer)
	ctx := context.Background()

	values := []record{{Name: "a", Age: 1}, {Name: "b", Age: 2}, {Name: "c", Age: 3}}
	require.NoError(t, store.PutBulk(ctx, 100, values))

	got, err := store.GetBulk(ctx, 100, 102)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

// TestScenarioS2ConcurrentClients drives spec.md §8 scenario S2: 20
// concurrent goroutines each writing and reading back their own id.
func TestScenarioS2ConcurrentClients(t *testing.T) {
	addr := startCirrusServer(t, 1<<20)
	client := dialCirrusClient(t, addr)
	store := cirrus.NewObjectStore[record](client, jsonSerializer, jsonDeserializer)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := uint64(1000 + i)
			v := record{Name: "worker", Age: i}
			if err := store.Put(ctx, id, v); err != nil {
				errs[i] = err
				return
			}
			got, err := store.Get(ctx, id)
			if err != nil {
				errs[i] = err
				return
			}
			if got != v {
				errs[i] = assertionErr{id, v, got}
			}
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
}

type assertionErr struct {
	id       uint64
	want, got record
}

func (e assertionErr) Error() string {
	return "id mismatch"
}

func TestScenarioS6DiskBackendSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := cirrus.DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Capacity = 1 << 20

	srv1, err := cirrus.NewDiskServer(cfg, dir)
	require.NoError(t, err)
	ctx1, cancel1 := context.WithCancel(context.Background())
	go srv1.Serve(ctx1)
	var addr string
	for i := 0; i < 200; i++ {
		if a := srv1.Addr(); a != nil {
			addr = a.String()
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotEmpty(t, addr)

	client1 := dialCirrusClient(t, addr)
	require.NoError(t, client1.Write(context.Background(), 42, []byte("persisted")))
	client1.Close()
	cancel1()
	srv1.Close()

	cfg2 := cfg
	cfg2.ListenAddr = "127.0.0.1:0"
	srv2, err := cirrus.NewDiskServer(cfg2, dir)
	require.NoError(t, err)
	ctx2, cancel2 := context.WithCancel(context.Background())
	go srv2.Serve(ctx2)
	t.Cleanup(func() {
		cancel2()
		srv2.Close()
	})
	var addr2 string
	for i := 0; i < 200; i++ {
		if a := srv2.Addr(); a != nil {
			addr2 = a.String()
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotEmpty(t, addr2)

	client2 := dialCirrusClient(t, addr2)
	data, err := client2.Read(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), data)
}

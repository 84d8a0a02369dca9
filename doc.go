// Package cirrus implements a disaggregated, remote in-memory key-value
// object store: client processes share a pool of memory hosted on one or
// more storage nodes through a typed API that serializes user objects,
// addresses them by a 64-bit id, and stores them in a server-managed byte
// pool. A client-side cache with pluggable eviction and prefetch sits on
// top to hide latency.
//
// The package is built from three layers:
//   - Server/Client: the TCP listener and async connection engine, talking
//     a length-prefixed binary wire protocol (internal/wire).
//   - ObjectStore[T]: a typed façade over Client, pairing a Serializer[T]
//     and Deserializer[T] so callers never see raw bytes.
//   - Cache[T]/Iterator[T]: an optional bounded client-side cache with
//     pluggable EvictionPolicy/PrefetchPolicy, and a forward cursor over a
//     contiguous id range that rides the cache's prefetching.
//
// Example:
//
//	srv := cirrus.NewMemoryServer(cirrus.ServerConfig{ListenAddr: ":9000", Capacity: 1 << 20})
//	go srv.Serve(context.Background())
//
//	client, _ := cirrus.Dial(context.Background(), cirrus.ClientConfig{ServerAddr: "127.0.0.1:9000"})
//	store := cirrus.NewObjectStore[string](client, stringSerializer, stringDeserializer)
//	_ = store.Put(context.Background(), 1, "hello")
//
// Use Server to host a pool on a TCP listener, Client to connect to one,
// and NewObjectStore to wrap a Client with a typed serializer pair.
package cirrus

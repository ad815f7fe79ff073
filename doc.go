// Package cacheaside is a cache-aside layer over a key-value store.
//
// Components:
//   - store.Store: backend adapter (Redis via go-redis, in-process bigcache,
//     optional ristretto near cache). Every failure carries an errs.Kind.
//   - codec.Codec[V]: (de)serializes V <-> []byte. JSON by default.
//   - fieldmap.Schema[T]: declared mapping between a struct and a flat hash.
//   - Service: key-space navigation, admin, raw hashes, tagged variants.
//   - Cache[V]: typed get/set/insert/update/delete and get-or-fetch.
//
// Get-or-fetch is read-through with a fail-open backend:
//
//	users := cacheaside.For[User](svc, codec.JSON[User]{})
//	u, err := users.GetOrFetch(ctx, "user:42", loadUser, 10*time.Minute)
//
// A miss, or a lookup that fails with a transport error, runs the producer.
// Decode and usage errors are returned. The value is then written back; that
// write-back is the one place an error is discarded (see Hooks.WriteBackDropped).
//
// The producer may run concurrently for the same key in different calls. Add
// external coordination if it must run once.
//
// Expiry: ttl 0 takes Options.DefaultTTL, NoExpiry stores without expiry.
package cacheaside

// Package async runs a function in the background and exposes its result as a Future.
//
//	f := async.Go(ctx, func(ctx context.Context) (*User, error) {
//	    return api.Me(ctx)
//	})
//	...
//	user, err := f.Await(ctx)
//
// Await takes its own context: giving up on waiting does not cancel the
// computation, which keeps running under the context passed to Go.
// WaitAll collects several futures and reports the first error.
package async

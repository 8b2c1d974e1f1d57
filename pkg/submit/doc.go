// Package submit sends create requests that are safe to retry.
//
// An Intent stands for one user decision ("submit this ticket"). It carries a
// random key, drawn once, that travels in the Idempotency-Key header of every
// attempt made for that intent. The server creates at most one entity per key.
//
// Submitter.Submit performs one attempt and, when it ends in a transport
// failure, exactly one immediate replay with the same key and payload. An
// intent that reached Created is finished: submitting it again returns the
// recorded entity without a request. A new decision needs a new Intent.
//
//	intent := submit.NewIntent()
//	res := tickets.Submit(ctx, intent, apiclient.NewTicket{...})
//	if res.Kind == submit.TransportFailure {
//	    // let the user press retry; reuse intent
//	}
package submit

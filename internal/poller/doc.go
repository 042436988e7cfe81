// Package poller provides the transport and tick bookkeeping behind the
// dripfeed status poller.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper issuing form-encoded requests to the
//     sender API with per-request timeouts and a 1MB body limit
//   - [Countdown]: the tick counter and adaptive threshold (short while a
//     file is being sent, long while idle)
//
// Users of the dripfeed library should not need to interact with this
// package directly. Configuration is done through the main dripfeed package.
package poller

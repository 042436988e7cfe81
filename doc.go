// Package dripfeed provides a control panel for a drip-feed file sender,
// the kind used to stream programs to CNC machines that cannot hold a whole
// file in memory.
//
// The sender exposes a single endpoint, PUT /api, taking a form-encoded
// cmd of start, stop or status (start also takes a file). Every reply is
// JSON of the form {"error": 0|1, "message": "..."}.
//
// # Quick Start
//
// Point the panel at the sender and start it with graceful shutdown:
//
//	api, _ := dripfeed.NewAPI("http://sender.local/api")
//	panel, _ := dripfeed.New(dripfeed.WithAPI(api), dripfeed.WithFile("part.nc"))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	panel.Start(ctx) // blocks until context is cancelled
//
// # Polling
//
// The [StatusPoller] asks for status on an adaptive schedule. A ticker fires
// once per tick period; a status request goes out every
// [DefaultSendingTicks] ticks while the last reply mentions "Sending" and
// every [DefaultIdleTicks] ticks otherwise. Issuing any command, including a
// button press, restarts the countdown.
//
// The poller can be used without the panel by supplying a [Commander] and a
// [Renderer]:
//
//	sp, err := dripfeed.NewStatusPoller(dripfeed.NewHTTPCommander(api),
//	    dripfeed.WithRenderer(dripfeed.RendererFunc(func(b dripfeed.Banner) {
//	        fmt.Println(b.Style, b.Message)
//	    })),
//	)
//	sp.Start(ctx)
//	defer sp.Stop()
//
// # Banners
//
// Every reply becomes a [Banner] replacing the previous one:
//
//   - error=1: danger style with the bomb icon, message shown verbatim
//   - start or stop accepted: success style with the rocket icon
//   - status: success style with the binoculars icon
//
// While a start or stop is in flight a warning banner with a spinning cog
// is shown. Transport failures are logged and leave the current banner in
// place.
//
// # HTTP Endpoints
//
// [Panel.Start] serves:
//
//   - GET /: the panel page
//   - POST /command/{cmd}: button presses
//   - GET /banner, GET /banner/history: banner snapshots as JSON
//   - GET /events: Server-Sent Events stream
//   - GET /ws: WebSocket stream
//   - GET /metrics: Prometheus metrics
//
// # Thread Safety
//
// [API] and [Banner] are immutable values. [StatusPoller] and [Panel] are
// safe for concurrent use.
package dripfeed

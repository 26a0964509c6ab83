// Package natsclient manages the NATS connection to the robot.
//
// The robot's onboard services expose request/response endpoints and
// telemetry subjects over an embedded NATS server. Client wraps a single
// connection with status tracking, reconnect handling, a background health
// monitor, and a drain-with-grace Close. It implements link.Link, which is
// the only surface the controllers see.
//
// Typical use:
//
//	client, err := natsclient.NewClient("nats://192.168.54.111:4222",
//		natsclient.WithLocalIP("192.168.54.100"),
//		natsclient.WithName("z1-sdk"),
//	)
//	if err != nil { ... }
//	if err := client.Connect(ctx); err != nil { ... }
//	defer client.Close(ctx)
//
// JetStream is available through JetStream(), CreateStream and
// PublishToStream for the optional telemetry recorder; the control path
// never touches it.
package natsclient

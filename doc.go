// Package z1sdk is the client control core for the MagicBot Z1 humanoid robot.
//
// The SDK reconciles three concurrency regimes over a single robot link:
//
//   - synchronous timed commands (request/reply with per-call deadlines),
//   - best-effort telemetry subscriptions delivered at sensor rates,
//   - a caller-driven fixed-period low-level joint command loop.
//
// # Architecture
//
//	┌───────────────────────────────────────┐
//	│              robot.Robot              │  Connection lifecycle,
//	│ (Initialize, Connect, Shutdown, level)│  controller ownership
//	└───────────────────────────────────────┘
//	           ↓ hands out
//	┌───────────────────────────────────────┐
//	│            Controllers                │  audio, sensor, motion
//	│ (timed commands + stream management)  │  high/low, slamnav, monitor
//	└───────────────────────────────────────┘
//	           ↓ communicate via
//	┌───────────────────────────────────────┐
//	│            link / natsclient          │  request-reply, pub/sub,
//	│        (NATS robot transport)         │  connection health
//	└───────────────────────────────────────┘
//
// Every command returns a types.Status; the SDK never panics across its public
// boundary for expected failure modes. Telemetry callbacks run on per-stream
// dispatch goroutines with bounded buffering, so a slow consumer on one stream
// cannot stall other streams or command replies.
//
// Typical usage:
//
//	r := robot.New()
//	if err := r.Initialize("192.168.54.100"); err != nil {
//		log.Fatal(err)
//	}
//	defer r.Shutdown()
//
//	if st := r.Connect(); !st.IsOK() {
//		log.Fatal(st)
//	}
//
//	if st := r.Audio().SetVolume(60); !st.IsOK() {
//		log.Println(st)
//	}
package z1sdk

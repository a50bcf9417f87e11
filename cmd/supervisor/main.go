// Command supervisor is the flight binary entry point: it loads
// configuration, determines the reset cause from the platform hooks,
// runs the boot sequence, and drives the cooperative scheduler loop
// forever at a fixed tick rate. Grounded on the teacher's cmd/
// convention of a thin main wiring a constructed engine and looping
// (e.g. cmd/integration_simple/main.go built one Engine and drove it).
package main

import (
	"os"
	"time"

	"github.com/TheusHen/OpenFSW/pkg/bootrec"
	"github.com/TheusHen/OpenFSW/pkg/config"
	"github.com/TheusHen/OpenFSW/pkg/platform"
	"github.com/TheusHen/OpenFSW/pkg/supervisor"
	"github.com/TheusHen/OpenFSW/pkg/telemetry"
)

const tickIntervalMs = 100

func main() {
	cfg := config.Default()
	if path := os.Getenv("OPENFSW_CONFIG"); path != "" {
		// An unreadable or invalid file leaves the built-in defaults in place.
		if loaded, err := config.Load(path); err == nil {
			cfg = *loaded
		}
	}

	hooks := platform.NewSim(platform.ResetPowerOn)

	sup := supervisor.New(hooks, cfg)

	nowMs := hooks.TimeMsMonotonic()
	var persistent [bootrec.Size]byte
	hkGens := map[uint16]telemetry.Generator{
		telemetry.APIDSystem: func(t uint32) []byte { return []byte{0x01} },
		telemetry.APIDPower:  func(t uint32) []byte { return []byte{0x02} },
		telemetry.APIDADCS:   func(t uint32) []byte { return []byte{0x03} },
		telemetry.APIDComms:  func(t uint32) []byte { return []byte{0x04} },
	}
	sup.Boot(persistent, hooks.ResetGetCause(), nowMs, hkGens)

	ticker := time.NewTicker(tickIntervalMs * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		hooks.Advance(tickIntervalMs)
		sup.Step(hooks.TimeMsMonotonic())

		for {
			pkt, ok := sup.DequeueTelemetry()
			if !ok {
				break
			}
			_ = pkt // the downlink transport is external to this module
		}
	}
}

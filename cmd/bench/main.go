// Command bench drives the supervisor deterministically over a
// simulated mission timeline using platform.Sim, printing mode
// transitions and dequeued telemetry as they occur. Grounded on the
// teacher's cmd/integration_simple/main.go, which built one engine and
// fed it a scripted sequence of events to demonstrate behavior without
// any real hardware or network dependency.
package main

import (
	"fmt"

	"github.com/TheusHen/OpenFSW/pkg/bootrec"
	"github.com/TheusHen/OpenFSW/pkg/config"
	"github.com/TheusHen/OpenFSW/pkg/platform"
	"github.com/TheusHen/OpenFSW/pkg/supervisor"
	"github.com/TheusHen/OpenFSW/pkg/telemetry"
)

const stepMs = 100

func main() {
	cfg := config.Default()
	hooks := platform.NewSim(platform.ResetPowerOn)
	sup := supervisor.New(hooks, cfg)

	var persistent [bootrec.Size]byte
	hkGens := map[uint16]telemetry.Generator{
		telemetry.APIDSystem: func(t uint32) []byte { return []byte{byte(t)} },
		telemetry.APIDPower:  func(t uint32) []byte { return []byte{byte(t >> 8)} },
		telemetry.APIDADCS:   func(t uint32) []byte { return []byte{byte(t >> 16)} },
		telemetry.APIDComms:  func(t uint32) []byte { return []byte{byte(t >> 24)} },
	}
	sup.Boot(persistent, hooks.ResetGetCause(), hooks.TimeMsMonotonic(), hkGens)

	fmt.Printf("boot mode: %s\n", sup.Mode())

	lastMode := sup.Mode()
	for i := 0; i < 600; i++ {
		hooks.Advance(stepMs)
		sup.Step(hooks.TimeMsMonotonic())

		if m := sup.Mode(); m != lastMode {
			fmt.Printf("t=%dms mode transition -> %s\n", hooks.TimeMsMonotonic(), m)
			lastMode = m
		}

		for {
			pkt, ok := sup.DequeueTelemetry()
			if !ok {
				break
			}
			fmt.Printf("t=%dms tm packet (%d bytes)\n", hooks.TimeMsMonotonic(), len(pkt))
		}
	}

	fmt.Printf("watchdog kicks: %d\n", hooks.WatchdogKicks())
}

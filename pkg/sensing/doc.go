// Package sensing implements models that publish local readings on a
// configurable cadence.
//
// Sensor publishes the ambient temperature as a Sensor Status. Battery
// publishes a Generic Battery Status. Both start with publication disabled
// and wait for a PublicationCadence control event. With a periodic cadence
// they race inbound payloads against the ticker, inbound first, so a
// cadence change queued at the same moment as a tick always takes effect
// before that tick is served. On each tick the model takes a reading and
// publishes it. Read and publish failures are logged and the tick is
// skipped; there is no retry.
//
// Inbound access messages are accepted and ignored.
//
// Drivers:
//   - Thermometer: SimulatedThermometer, HostThermometer (host sensors via
//     gopsutil)
//   - Gauge: SimulatedGauge
package sensing

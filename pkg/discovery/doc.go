// Package discovery finds MQTT brokers and advertises node endpoints over
// mDNS/DNS-SD.
//
// # Service Types
//
//	_mqtt._tcp       MQTT brokers, browsed by nodes started with discovery
//	_meshnode._tcp   node stream endpoints, advertised by listening nodes
//
// # Node TXT Records
//
//	id=<node id>
//	addr=<unicast address, hex>   (optional)
//	loc=<comma separated element locations>
//
// Services seen on several interfaces are merged into one entry with the
// union of their addresses.
package discovery

package discovery

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Service types and domain.
const (
	// ServiceTypeBroker is the DNS-SD type of MQTT brokers.
	ServiceTypeBroker = "_mqtt._tcp"

	// ServiceTypeNode is the DNS-SD type of node stream endpoints.
	ServiceTypeNode = "_meshnode._tcp"

	// Domain is the mDNS domain.
	Domain = "local."
)

// TXT record keys.
const (
	TXTKeyNodeID    = "id"
	TXTKeyAddress   = "addr"
	TXTKeyLocations = "loc"
)

// MaxInstanceNameLen is the DNS label limit for instance names.
const MaxInstanceNameLen = 63

// Discovery errors.
var (
	ErrNotFound            = errors.New("no service found")
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInvalidTXT          = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name too long")
)

// Service is a resolved DNS-SD service instance.
type Service struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string
	Text      TXTRecordMap
}

// HostPort returns "host:port" using the first address, or the host name
// when no address was resolved.
func (s Service) HostPort() string {
	host := strings.TrimSuffix(s.Host, ".")
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// BrokerURL returns the MQTT URL of a broker service, e.g. "tcp://10.0.0.2:1883".
func (s Service) BrokerURL() string {
	return "tcp://" + s.HostPort()
}

// NodeInfo describes a node endpoint for advertising.
type NodeInfo struct {
	NodeID    string
	Address   *uint16
	Locations []uint16
	Port      uint16
}

// InstanceName returns the DNS-SD instance name of the node.
func (n NodeInfo) InstanceName() string {
	name := "meshnode-" + n.NodeID
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeNodeTXT creates TXT records for a node endpoint.
func EncodeNodeTXT(info NodeInfo) TXTRecordMap {
	txt := TXTRecordMap{TXTKeyNodeID: info.NodeID}
	if info.Address != nil {
		txt[TXTKeyAddress] = fmt.Sprintf("%04X", *info.Address)
	}
	locs := make([]string, len(info.Locations))
	for i, l := range info.Locations {
		locs[i] = strconv.Itoa(int(l))
	}
	txt[TXTKeyLocations] = strings.Join(locs, ",")
	return txt
}

// DecodeNodeTXT parses node TXT records. The port is not part of the TXT
// data and is left zero.
func DecodeNodeTXT(txt TXTRecordMap) (NodeInfo, error) {
	var info NodeInfo

	id, ok := txt[TXTKeyNodeID]
	if !ok || id == "" {
		return NodeInfo{}, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNodeID)
	}
	info.NodeID = id

	if a, ok := txt[TXTKeyAddress]; ok {
		v, err := strconv.ParseUint(a, 16, 16)
		if err != nil {
			return NodeInfo{}, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, TXTKeyAddress, a)
		}
		addr := uint16(v)
		info.Address = &addr
	}

	if locs := txt[TXTKeyLocations]; locs != "" {
		for _, part := range strings.Split(locs, ",") {
			v, err := strconv.ParseUint(part, 10, 16)
			if err != nil {
				return NodeInfo{}, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, TXTKeyLocations, locs)
			}
			info.Locations = append(info.Locations, uint16(v))
		}
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings in
// key order.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(txt))
	for _, k := range keys {
		result = append(result, k+"="+txt[k])
	}
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if found {
			txt[k] = v
		} else if k != "" {
			// Key without value (boolean flag)
			txt[k] = ""
		}
	}
	return txt
}

// mergeAddresses returns the union of a and b, keeping the order of a.
func mergeAddresses(a, b []string) []string {
	out := slices.Clone(a)
	for _, addr := range b {
		if !slices.Contains(out, addr) {
			out = append(out, addr)
		}
	}
	return out
}

// removeAddresses returns a without any address in b.
func removeAddresses(a, b []string) []string {
	return slices.DeleteFunc(slices.Clone(a), func(addr string) bool {
		return slices.Contains(b, addr)
	})
}

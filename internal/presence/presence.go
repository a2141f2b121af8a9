// Package presence loads the optional operator hints that mark which
// node-ids are expected on a given network, so the heartbeat monitor can
// de-emphasize unexpected silence instead of flagging it as a failure.
// Any parsing failure is swallowed: the documented fallback is "all nodes
// present", never a hard error.
package presence

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	canopen "github.com/canopenctl/canopenctl"
)

const (
	managersConfPath = "/etc/canopen/managers.conf"
	nodelistPattern  = "/etc/canopen/%s/nodelist.cpj"
)

// Load resolves the presence table for iface, falling back to "every node
// present" whenever managers.conf or the per-network nodelist.cpj cannot be
// read or parsed, or managers.conf has no entry for iface. Nodes not named
// present in an existing nodelist.cpj are absent.
func Load(iface string) map[canopen.NodeID]bool {
	return LoadFrom(managersConfPath, nodelistPattern, iface)
}

// LoadFrom is Load with the managers.conf path and a fmt.Sprintf pattern
// for the per-network nodelist path (taking the network name as its one
// argument) given explicitly, so tests can point it at a scratch
// directory instead of /etc/canopen.
func LoadFrom(managersPath, nodelistFmt, iface string) map[canopen.NodeID]bool {
	table, err := load(managersPath, nodelistFmt, iface)
	if err != nil {
		log.Debugf("presence: %v; assuming all nodes present", err)
		return allPresent()
	}
	return table
}

func load(managersPath, nodelistFmt, iface string) (map[canopen.NodeID]bool, error) {
	network, err := resolveNetworkName(managersPath, iface)
	if err != nil {
		return nil, err
	}
	return loadNodelist(fmt.Sprintf(nodelistFmt, network))
}

func allPresent() map[canopen.NodeID]bool {
	table := make(map[canopen.NodeID]bool, canopen.MaxNodeID)
	for id := canopen.NodeID(1); id <= canopen.MaxNodeID; id++ {
		table[id] = true
	}
	return table
}

// resolveNetworkName scans managers.conf for the first whitespace-separated
// record `<interface> <baudrate> <node-id> <network-name>` whose interface
// field matches iface.
func resolveNetworkName(path, iface string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", canopen.ErrConfigParse, path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		if fields[0] == iface {
			return fields[3], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: scan %s: %v", canopen.ErrConfigParse, path, err)
	}
	return "", fmt.Errorf("%w: no entry for interface %q in %s", canopen.ErrConfigParse, iface, path)
}

// loadNodelist parses the INI-like `Node<N>Present=0x01` keys out of a
// network's nodelist.cpj. Keys for nodes not mentioned default to absent;
// the caller has already established this network has a dedicated file,
// so a node missing from it is simply not configured present.
func loadNodelist(path string) (map[canopen.NodeID]bool, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", canopen.ErrConfigParse, path, err)
	}

	table := make(map[canopen.NodeID]bool, canopen.MaxNodeID)
	for _, section := range cfg.Sections() {
		for _, key := range section.Keys() {
			id, ok := presentNodeID(key.Name())
			if !ok {
				continue
			}
			value, err := strconv.ParseInt(key.Value(), 0, 64)
			if err == nil && value == 0x01 {
				table[id] = true
			}
		}
	}
	return table, nil
}

// presentNodeID matches a key of the form "Node<N>Present" case-
// insensitively and returns N. The whole key has to be of that form: it
// starts with "node", ends with "present", and has only N's digits between.
func presentNodeID(key string) (canopen.NodeID, bool) {
	lower := strings.ToLower(key)
	const prefix, suffix = "node", "present"
	if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
		return 0, false
	}
	digits := lower[len(prefix) : len(lower)-len(suffix)]
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > canopen.MaxNodeID {
		return 0, false
	}
	return canopen.NodeID(n), true
}

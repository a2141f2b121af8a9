// Command canopenctl is the CANopen operator tool's entry point. It
// dispatches by the program's basename (so hard/soft links named nmt,
// sdo-upload, sdo-read, sdo-download, sdo-write, or canopentool select the
// corresponding behavior) and otherwise by argv shape.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	canopen "github.com/canopenctl/canopenctl"
	"github.com/canopenctl/canopenctl/internal/dashboard"
	"github.com/canopenctl/canopenctl/internal/presence"
	"github.com/canopenctl/canopenctl/pkg/can"
	"github.com/canopenctl/canopenctl/pkg/can/socketcan"
)

const unlockPassword = "i am the master of my fate: i am the captain of my soul."

func main() {
	if lvl := os.Getenv("CANOPENCTL_LOG"); lvl != "" {
		if parsed, err := log.ParseLevel(lvl); err == nil {
			log.SetLevel(parsed)
		}
	}

	if err := run(filepath.Base(os.Args[0]), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(program string, args []string) error {
	switch strings.ToLower(program) {
	case "nmt":
		return runNMT(args)
	case "sdo-upload", "sdo-read":
		return runSDOUpload(args)
	case "sdo-download", "sdo-write":
		return runSDODownload(args)
	default:
		return runCanopentool(program, args)
	}
}

// runCanopentool implements the multi-call "canopentool" entry point: no
// args prints help, one arg runs the heartbeat monitor on that interface,
// more args re-dispatch treating args[0] as the subcommand name (mirroring
// the original tool's recursive argv-shift behavior).
func runCanopentool(program string, args []string) error {
	switch len(args) {
	case 0:
		printHelp()
		return nil
	case 1:
		return runMonitor(args[0])
	default:
		return run(args[0], args[1:])
	}
}

func printHelp() {
	fmt.Print(`canopenctl: the operator tool for CANopen networks

  nmt <interface> <start|stop|pre-operational|reset-node|reset-communication> [node-id]
  sdo-upload <interface> <node-id> <index> <subindex>
  sdo-download <interface> <node-id> <index> <subindex> <data> [type]
  canopenctl <interface>   (launches the heartbeat dashboard)
`)
}

func runNMT(args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return fmt.Errorf("%w: usage: nmt <interface> <command> [node-id]", canopen.ErrUsage)
	}
	command, err := canopen.ParseNMTCommand(args[1])
	if err != nil {
		return err
	}
	node := canopen.NodeID(canopen.BroadcastNodeID)
	if len(args) == 3 {
		node, err = parseNodeID(args[2])
		if err != nil {
			return err
		}
	}
	if err := node.ValidateNMT(); err != nil {
		return err
	}
	if err := ensureAuthorized(); err != nil {
		return err
	}

	bus, err := socketcan.Open(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", canopen.ErrTransportOpen, err)
	}
	defer bus.Close()

	return canopen.SendNMT(bus, command, node)
}

func runSDOUpload(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("%w: usage: sdo-upload <interface> <node-id> <index> <subindex>", canopen.ErrUsage)
	}
	node, index, subindex, err := parseSDOAddress(args[1], args[2], args[3])
	if err != nil {
		return err
	}
	if err := node.ValidateSDO(); err != nil {
		return err
	}

	bus, err := socketcan.Open(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", canopen.ErrTransportOpen, err)
	}
	defer bus.Close()

	client := canopen.NewSDOClient(bus, node)
	result := client.Upload(index, subindex)
	return reportSDOResult(result, index, subindex)
}

func runSDODownload(args []string) error {
	if len(args) != 5 && len(args) != 6 {
		return fmt.Errorf("%w: usage: sdo-download <interface> <node-id> <index> <subindex> <data> [type]", canopen.ErrUsage)
	}
	node, index, subindex, err := parseSDOAddress(args[1], args[2], args[3])
	if err != nil {
		return err
	}
	if err := node.ValidateSDO(); err != nil {
		return err
	}
	typeToken := ""
	if len(args) == 6 {
		typeToken = strings.ToLower(args[5])
	}
	scalar, err := canopen.ParseScalarType(typeToken)
	if err != nil {
		return err
	}
	raw, err := strconv.ParseUint(args[4], 0, 32)
	if err != nil {
		return fmt.Errorf("%w: bad SDO data %q: %v", canopen.ErrUsage, args[4], err)
	}
	data := encodeLittleEndian(uint32(raw))

	if err := ensureAuthorized(); err != nil {
		return err
	}

	bus, err := socketcan.Open(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", canopen.ErrTransportOpen, err)
	}
	defer bus.Close()

	client := canopen.NewSDOClient(bus, node)
	result := client.Download(index, subindex, data, scalar)
	return reportSDOResult(result, index, subindex)
}

func runMonitor(iface string) error {
	bus, err := socketcan.Open(iface)
	if err != nil {
		return fmt.Errorf("%w: %v", canopen.ErrTransportOpen, err)
	}
	defer bus.Close()

	present := presence.Load(iface)
	dash, err := dashboard.New(bus, can.ResolveInterfaceName(iface), present)
	if err != nil {
		return err
	}
	return dash.Run()
}

// reportSDOResult prints an upload's payload to stdout or a failure to
// stderr, and maps the outcome to the error the caller returns (and so the
// exit code it produces).
func reportSDOResult(result canopen.SDOResult, index uint16, subindex uint8) error {
	switch result.Kind {
	case canopen.SDODone:
		if len(result.Data) > 0 {
			fmt.Println(formatUploadData(result.Data))
		}
		return nil
	case canopen.SDOAborted:
		return fmt.Errorf("%w: 0x%08X %s", canopen.ErrProtocolAborted, uint32(result.Abort), result.Abort.Explanation())
	case canopen.SDOProtocolViolation:
		return fmt.Errorf("%w: unexpected server response for 0x%04X:0x%02X", canopen.ErrProtocolViolation, index, subindex)
	default:
		return fmt.Errorf("%w", canopen.ErrProtocolTimeout)
	}
}

// formatUploadData renders upload data of more than 4 bytes as its raw
// bytes and data of 4 bytes or fewer as a little-endian hex integer. The
// choice depends on length only: a segmented upload of 4 bytes or fewer is
// also printed as a hex integer.
func formatUploadData(data []byte) string {
	if len(data) > 4 {
		return string(data)
	}
	var value uint64
	for i := len(data) - 1; i >= 0; i-- {
		value = value<<8 | uint64(data[i])
	}
	return fmt.Sprintf("0x%X", value)
}

func encodeLittleEndian(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func parseNodeID(token string) (canopen.NodeID, error) {
	v, err := strconv.ParseInt(token, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: bad node-id %q: %v", canopen.ErrUsage, token, err)
	}
	if v < 0 || v > canopen.MaxNodeID {
		return 0, fmt.Errorf("%w: node-id %d out of range 0..%d", canopen.ErrUsage, v, canopen.MaxNodeID)
	}
	return canopen.NodeID(v), nil
}

func parseSDOAddress(nodeToken, indexToken, subindexToken string) (canopen.NodeID, uint16, uint8, error) {
	node, err := parseNodeID(nodeToken)
	if err != nil {
		return 0, 0, 0, err
	}
	index, err := strconv.ParseInt(indexToken, 0, 32)
	if err != nil || index < 0 || index > 0xFFFF {
		return 0, 0, 0, fmt.Errorf("%w: bad index %q", canopen.ErrUsage, indexToken)
	}
	subindex, err := strconv.ParseInt(subindexToken, 0, 16)
	if err != nil || subindex < 0 || subindex > 0xFF {
		return 0, 0, 0, fmt.Errorf("%w: bad subindex %q", canopen.ErrUsage, subindexToken)
	}
	return node, uint16(index), uint8(subindex), nil
}

// ensureAuthorized implements the administrative capability check for
// commands that change remote state: root, or the exact unlock phrase in
// UNLOCK_DANGEROUS_THINGS (case-insensitive). This is a deliberate policy
// affordance, not a security boundary.
func ensureAuthorized() error {
	if os.Geteuid() == 0 {
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("UNLOCK_DANGEROUS_THINGS")), unlockPassword) {
		return nil
	}
	return fmt.Errorf("%w: sorry, only root can do that", canopen.ErrPermission)
}

// Package nodeid derives the process-unique host identifier that anchors
// every actor address. A node id is the 20-byte hash of the process host's
// MAC addresses and filesystem uuid, plus the process id; the last hash byte
// is overridden by a process-wide counter so more than one actor system can
// coexist inside a single process without colliding node ids.
package nodeid

import (
	"crypto/sha1" //nolint:gosec // used as a 160-bit host fingerprint, not for security
	"encoding/hex"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// HostLen is the width, in bytes, of the hashed host identifier.
const HostLen = 20

// ID identifies the host and process that created an actor. Two IDs compare
// equal iff both the host fingerprint and the process id match.
type ID struct {
	Host [HostLen]byte
	Pid  uint32
}

// systemCounter is incremented once per actor system constructed in this
// process so that each gets a distinct last host-identifier byte, allowing
// multiple actor systems to coexist in one process.
var systemCounter atomic.Uint32

var (
	hostUUIDOnce sync.Once
	hostUUID     [16]byte
)

// New derives a node id for a freshly constructed actor system. Every call
// hashes the same host fingerprint but overrides the last byte with a
// monotonically increasing counter, so systems started in the same process
// never collide.
func New() ID {
	digest := hostFingerprint()

	var id ID
	copy(id.Host[:], digest[:HostLen])

	// Override the last byte with the process-wide system counter. This
	// mirrors node_id's system_id trick: multiple actor systems in one
	// process still get distinct ids without re-reading host state.
	counter := systemCounter.Add(1)
	id.Host[HostLen-1] = byte(counter)

	id.Pid = uint32(os.Getpid()) //nolint:gosec // pid truncation is accepted CAF behavior

	return id
}

// hostFingerprint hashes the union of this host's MAC addresses and its
// filesystem uuid into a 160-bit (sha1-sized) digest. The filesystem uuid
// is cached for the process (see filesystemUUID); the MAC addresses are
// read again on every call.
func hostFingerprint() [sha1.Size]byte {
	h := sha1.New() //nolint:gosec // see HostLen comment

	for _, mac := range macAddresses() {
		h.Write(mac)
	}
	h.Write(filesystemUUID())

	var out [sha1.Size]byte
	copy(out[:], h.Sum(nil))

	return out
}

// macAddresses returns the hardware addresses of every network interface
// that has one, in the order net.Interfaces reports them.
func macAddresses() [][]byte {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var macs [][]byte
	for _, iface := range ifaces {
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		macs = append(macs, []byte(iface.HardwareAddr))
	}

	return macs
}

// filesystemUUID returns a host-scoped uuid, read from the usual Linux
// machine-id locations. If none is present (e.g. containers without a
// machine-id file, or non-Linux hosts), a random uuid is generated once and
// cached for the remainder of the process so repeated calls are stable.
func filesystemUUID() []byte {
	hostUUIDOnce.Do(func() {
		for _, path := range []string{
			"/etc/machine-id",
			"/var/lib/dbus/machine-id",
		} {
			raw, err := os.ReadFile(path)
			if err != nil || len(raw) == 0 {
				continue
			}

			if parsed, err := uuid.Parse(string(trimHex(raw))); err == nil {
				hostUUID = parsed
				return
			}
		}

		// No machine-id file found; synthesize one. This only affects
		// node-id stability across process restarts on hosts that
		// never expose a machine-id file, which spec §3 treats as an
		// acceptable source of the host filesystem uuid.
		hostUUID = uuid.New()
	})

	return hostUUID[:]
}

// trimHex trims the trailing newline bash/Linux machine-id files carry.
func trimHex(raw []byte) []byte {
	n := len(raw)
	for n > 0 && (raw[n-1] == '\n' || raw[n-1] == '\r' || raw[n-1] == ' ') {
		n--
	}
	return raw[:n]
}

// Compare orders two node ids byte-wise over the host fingerprint, then by
// process id. It is used to give actor addresses a total order.
func Compare(a, b ID) int {
	for i := 0; i < HostLen; i++ {
		if a.Host[i] != b.Host[i] {
			if a.Host[i] < b.Host[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case a.Pid < b.Pid:
		return -1
	case a.Pid > b.Pid:
		return 1
	default:
		return 0
	}
}

// String renders the node id as hex(host)/hex(pid), useful for logging.
func (id ID) String() string {
	return hex.EncodeToString(id.Host[:]) + "/" + hex.EncodeToString(encodeUint32(id.Pid))
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// Package vsockshim maps vsock (cid, port) pairs onto deterministic
// loopback TCP addresses. It is the only vsock transport in this
// repository, in every build: it keeps the same CLI surface as hypervisor
// deployments, with the enclave listening on and the host dialing the
// shim address derived from the same flag values.
package vsockshim

import "strconv"

// Address returns the loopback TCP address standing in for a vsock
// (cid, port) pair. The mapping is deterministic so both ends of the
// socket resolve the same address from the same flags.
func Address(cid, port uint) string {
	shimPort := 40000 + (cid%1000)*100 + port%100
	return "127.0.0.1:" + strconv.FormatUint(uint64(shimPort), 10)
}

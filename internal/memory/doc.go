// Package memory configures Go's soft memory limit for containerized
// deployments.
//
// GOMAXPROCS follows cgroup CPU limits automatically but GOMEMLIMIT does
// not. The worker shares its container with the transcoder subprocess,
// whose memory is invisible to the Go runtime, so only part of the
// container limit is handed to the heap.
//
// Call [ConfigureFromEnv] at the top of main:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ...
//	}
//
// Environment variables:
//
//   - GOMEMLIMIT: standard Go variable; takes precedence when set
//   - MEMORY_LIMIT: container limit, typically from the Downward API
//     (limits.memory), as bytes or a Ki/Mi/Gi quantity
//   - MEMORY_RATIO: share of MEMORY_LIMIT for the heap (default 0.5)
package memory

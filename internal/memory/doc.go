// Package memory keeps preview generation inside the memory it is given.
//
// Thumbnail runs decode whole images, often through libvips or FFmpeg whose
// memory the Go runtime does not see. Two helpers cover that:
//
//   - [ConfigureFromEnv] sets GOMEMLIMIT once at startup. An explicit
//     GOMEMLIMIT wins. Otherwise MEMORY_LIMIT (bytes, usually the container
//     limit from the Kubernetes Downward API) times MEMORY_RATIO (default
//     0.80) becomes the limit, leaving the rest for cgo and child processes.
//   - [Monitor.WaitForHeadroom] is called by the preview generator before
//     each decode. Above the critical mark it forces a GC and waits, bounded
//     by [Config.MaxWait] and the context.
//
// Deployment example:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.75"
//
// GOMEMLIMIT is a soft limit on the Go heap only. Lower MEMORY_RATIO when
// video previews are enabled.
package memory

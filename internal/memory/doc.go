// Package memory sets GOMEMLIMIT from the container memory limit.
//
// Go does not derive a heap limit from cgroup settings. In Kubernetes the
// limit can be passed in through the Downward API:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// Only MEMORY_RATIO of that limit goes to the Go heap. The merger streams
// uploads to disk and does its audio work in ffmpeg subprocesses that share
// the container, so the default ratio is lower than for a pure Go service.
// An explicit GOMEMLIMIT always wins.
package memory

package models

// MCacheStats is a point-in-time snapshot of the response cache.
type MCacheStats struct {
	Size        int      `json:"size"`
	MemoryBytes int64    `json:"memory_bytes"`
	Keys        []string `json:"keys"`
}

// Package cluster provides the cluster calculator capability: given the
// host a request arrived on, decide which cluster a token belongs to.
// The host-to-cluster map is static, loaded at boot from configuration.
package cluster

import "strings"

// Calculator resolves request hosts to cluster names.
type Calculator struct {
	defaultCluster string
	hostClusters   map[string]string
}

// NewCalculator creates a calculator with the given default cluster and
// host map. Host keys are matched case-insensitively and without port.
func NewCalculator(defaultCluster string, hostClusters map[string]string) *Calculator {
	normalized := make(map[string]string, len(hostClusters))
	for host, c := range hostClusters {
		normalized[strings.ToLower(host)] = c
	}
	return &Calculator{
		defaultCluster: defaultCluster,
		hostClusters:   normalized,
	}
}

// Default returns the calculator's default cluster.
func (c *Calculator) Default() string {
	return c.defaultCluster
}

// Calculate maps a request host to its cluster, falling back to the
// default for unknown hosts.
func (c *Calculator) Calculate(host string) string {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if cluster, ok := c.hostClusters[host]; ok {
		return cluster
	}
	return c.defaultCluster
}

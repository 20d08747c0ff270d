package pbs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/centre-for-microbiome-research/hpc-scripts/internal/config"
)

// Node is one compute node's resource record, built fresh on each
// aggregation pass and never mutated afterwards.
type Node struct {
	Name          string
	CPUs          int
	CPUsAssigned  int
	MemGB         int64
	MemAssignedGB int64
	GPUs          int
	GPUsAssigned  int
	RawState      string
}

// Busy reports whether the node has any assigned CPUs. The raw scheduler
// state string is deliberately ignored here; it only serves as a
// fallback label in reports.
func (n *Node) Busy() bool {
	return n.CPUsAssigned > 0
}

// StateLabel returns "busy"/"free" from the assigned-CPU derivation,
// falling back to the raw state string for nodes reporting no CPUs at all.
func (n *Node) StateLabel() string {
	if n.CPUs == 0 && n.RawState != "" {
		return n.RawState
	}
	if n.Busy() {
		return "busy"
	}
	return "free"
}

// CPUPercent returns assigned/total CPU utilization (0 when the node has no CPUs).
func (n *Node) CPUPercent() float64 { return percent(float64(n.CPUsAssigned), float64(n.CPUs)) }

// MemPercent returns assigned/total memory utilization.
func (n *Node) MemPercent() float64 {
	return percent(float64(n.MemAssignedGB), float64(n.MemGB))
}

// GPUPercent returns assigned/total GPU utilization.
func (n *Node) GPUPercent() float64 { return percent(float64(n.GPUsAssigned), float64(n.GPUs)) }

func percent(used, total float64) float64 {
	if total == 0 {
		return 0
	}
	return used / total * 100
}

// QueryNodes runs pbsnodes -a and parses the reply.
func QueryNodes() ([]Node, error) {
	out, err := runCommand(fmt.Sprintf("%s -a", config.Global.PbsnodesBin), nil)
	if err != nil {
		return nil, err
	}
	return ParseNodes(bytes.NewReader(out))
}

// ParseNodes parses pbsnodes -a output: one block per node, beginning
// with a non-indented node name followed by indented key = value lines.
// Memory is reported in kilobytes and converted to gigabytes by integer
// division by 2^20.
func ParseNodes(r io.Reader) ([]Node, error) {
	blocks, err := ParseBlocks(r, "pbsnodes", "")
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(blocks))
	for _, block := range blocks {
		node := Node{
			Name:         block.Header,
			CPUs:         intAttr(block.Attrs, "resources_available.ncpus"),
			CPUsAssigned: intAttr(block.Attrs, "resources_assigned.ncpus"),
			GPUs:         intAttr(block.Attrs, "resources_available.ngpus"),
			GPUsAssigned: intAttr(block.Attrs, "resources_assigned.ngpus"),
			RawState:     block.Attrs["state"],
		}
		if v, ok := block.Attrs["resources_available.mem"]; ok {
			kb, err := NormalizeMemoryKB(v)
			if err != nil {
				return nil, err
			}
			node.MemGB = kb / (1 << 20)
		}
		if v, ok := block.Attrs["resources_assigned.mem"]; ok {
			kb, err := NormalizeMemoryKB(v)
			if err != nil {
				return nil, err
			}
			node.MemAssignedGB = kb / (1 << 20)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// hotThreshold marks a node dimension as hot when at or above this utilization.
const hotThreshold = 80.0

// ClusterStats are fleet-wide aggregates over a node set. GPU averages
// and percentages are computed only over nodes that actually carry
// GPUs, to avoid division artifacts from GPU-less nodes.
type ClusterStats struct {
	Nodes     int
	BusyNodes int

	TotalCPUs int
	UsedCPUs  int
	AvgCPUPct float64
	HotCPU    int // nodes at or above hotThreshold CPU utilization

	TotalMemGB int64
	UsedMemGB  int64
	AvgMemPct  float64
	HotMem     int

	GPUNodes  int
	TotalGPUs int
	UsedGPUs  int
	AvgGPUPct float64
	HotGPU    int
}

// Summarize aggregates per-node records into cluster statistics.
func Summarize(nodes []Node) ClusterStats {
	var stats ClusterStats
	stats.Nodes = len(nodes)
	if len(nodes) == 0 {
		return stats
	}

	var cpuPctSum, memPctSum, gpuPctSum float64
	for i := range nodes {
		n := &nodes[i]
		if n.Busy() {
			stats.BusyNodes++
		}

		stats.TotalCPUs += n.CPUs
		stats.UsedCPUs += n.CPUsAssigned
		cpuPctSum += n.CPUPercent()
		if n.CPUPercent() >= hotThreshold {
			stats.HotCPU++
		}

		stats.TotalMemGB += n.MemGB
		stats.UsedMemGB += n.MemAssignedGB
		memPctSum += n.MemPercent()
		if n.MemPercent() >= hotThreshold {
			stats.HotMem++
		}

		if n.GPUs > 0 {
			stats.GPUNodes++
			stats.TotalGPUs += n.GPUs
			stats.UsedGPUs += n.GPUsAssigned
			gpuPctSum += n.GPUPercent()
			if n.GPUPercent() >= hotThreshold {
				stats.HotGPU++
			}
		}
	}

	stats.AvgCPUPct = cpuPctSum / float64(len(nodes))
	stats.AvgMemPct = memPctSum / float64(len(nodes))
	if stats.GPUNodes > 0 {
		stats.AvgGPUPct = gpuPctSum / float64(stats.GPUNodes)
	}
	return stats
}
